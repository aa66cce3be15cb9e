package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"relatorios/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSmokeTester struct {
	calls  atomic.Int32
	report *models.PermissionReport
	err    error
}

func (f *fakeSmokeTester) SmokeTestPermissions(context.Context) (*models.PermissionReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func TestNewJobScheduler_RejectsBadInterval(t *testing.T) {
	_, err := NewJobScheduler(&fakeSmokeTester{}, 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunNow_CollectsReport(t *testing.T) {
	tester := &fakeSmokeTester{report: &models.PermissionReport{TenantID: "t1", Create: true, Read: true, Update: true, Delete: true}}
	js, err := NewJobScheduler(tester, time.Hour, zerolog.Nop())
	require.NoError(t, err)

	got := make(chan *models.PermissionReport, 1)
	js.OnRun(func(r *models.PermissionReport) { got <- r })
	js.Start()
	defer js.Stop()

	require.NoError(t, js.RunNow())

	select {
	case r := <-got:
		assert.Equal(t, "t1", r.TenantID)
		assert.True(t, r.OK())
	case <-time.After(5 * time.Second):
		t.Fatal("smoke test did not run")
	}
	assert.Len(t, js.Reports(), 1)
}

func TestRunSmokeTest_ErrorIsNotRecorded(t *testing.T) {
	tester := &fakeSmokeTester{err: errors.New("no tenant")}
	js, err := NewJobScheduler(tester, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	js.Start()
	defer js.Stop()

	assert.Error(t, js.runSmokeTest(context.Background()))
	assert.Empty(t, js.Reports())
	assert.Equal(t, int32(1), tester.calls.Load())
}

func TestReportsAreCapped(t *testing.T) {
	tester := &fakeSmokeTester{report: &models.PermissionReport{TenantID: "t1"}}
	js, err := NewJobScheduler(tester, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	js.Start()
	defer js.Stop()

	for i := 0; i < maxReports+5; i++ {
		require.NoError(t, js.runSmokeTest(context.Background()))
	}
	assert.Len(t, js.Reports(), maxReports)
}
