package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relatorios/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const (
	permissionSmokeJob = "permission-smoke-test"
	maxReports         = 50
)

// SmokeTester runs the tenant permission smoke test.
type SmokeTester interface {
	SmokeTestPermissions(ctx context.Context) (*models.PermissionReport, error)
}

// JobScheduler manages the periodic background jobs
type JobScheduler struct {
	scheduler gocron.Scheduler
	smoke     SmokeTester
	interval  time.Duration
	log       zerolog.Logger

	mu      sync.RWMutex
	jobs    map[string]gocron.Job
	reports []*models.PermissionReport
	onRun   func(*models.PermissionReport)
}

// NewJobScheduler creates a scheduler that runs the permission smoke test
// every interval. Runs never overlap.
func NewJobScheduler(smoke SmokeTester, interval time.Duration, log zerolog.Logger) (*JobScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("smoke test interval must be positive, got %s", interval)
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		smoke:     smoke,
		interval:  interval,
		log:       log.With().Str("component", "scheduler").Logger(),
		jobs:      make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

// OnRun registers fn to receive every smoke test report.
func (js *JobScheduler) OnRun(fn func(*models.PermissionReport)) {
	js.mu.Lock()
	js.onRun = fn
	js.mu.Unlock()
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.log.Info().Dur("interval", js.interval).Msg("starting background job scheduler")
	js.scheduler.Start()
}

// Stop stops the job scheduler
func (js *JobScheduler) Stop() error {
	js.log.Info().Msg("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

// Reports returns the most recent reports, oldest first.
func (js *JobScheduler) Reports() []*models.PermissionReport {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return append([]*models.PermissionReport(nil), js.reports...)
}

func (js *JobScheduler) registerJobs() error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(js.runSmokeTest, context.Background()),
		gocron.WithName(permissionSmokeJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("create %s job: %w", permissionSmokeJob, err)
	}
	js.jobs[permissionSmokeJob] = job
	js.log.Debug().Int("jobs", len(js.jobs)).Msg("registered background jobs")
	return nil
}

// RunNow triggers the smoke test outside its schedule.
func (js *JobScheduler) RunNow() error {
	js.mu.RLock()
	job, ok := js.jobs[permissionSmokeJob]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not registered", permissionSmokeJob)
	}
	return job.RunNow()
}

func (js *JobScheduler) runSmokeTest(ctx context.Context) error {
	report, err := js.smoke.SmokeTestPermissions(ctx)
	if err != nil {
		js.log.Error().Err(err).Msg("permission smoke test could not run")
		return err
	}
	if !report.OK() {
		js.log.Warn().Str("tenant_id", report.TenantID).Str("error", report.Error).Msg("permission smoke test failed")
	}

	js.mu.Lock()
	js.reports = append(js.reports, report)
	if len(js.reports) > maxReports {
		js.reports = js.reports[len(js.reports)-maxReports:]
	}
	onRun := js.onRun
	js.mu.Unlock()

	if onRun != nil {
		onRun(report)
	}
	return nil
}
