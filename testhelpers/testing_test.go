package testhelpers

import (
	"testing"

	"relatorios/internal/session"

	"github.com/stretchr/testify/assert"
)

func TestStaticProviderEmitReachesSubscribers(t *testing.T) {
	p := NewStaticProvider()
	var got []*session.Identity
	p.Subscribe(func(identity *session.Identity) { got = append(got, identity) })
	p.Subscribe(func(identity *session.Identity) { got = append(got, identity) })

	u1 := &session.Identity{UID: "u1"}
	p.Emit(u1)
	p.Emit(nil)

	assert.Equal(t, []*session.Identity{u1, u1, nil, nil}, got)
}

func TestSignedInSession(t *testing.T) {
	sess := SignedInSession(t, "u1", "t1", "staff")
	assert.True(t, sess.IsLoggedIn())
	assert.Equal(t, "t1", sess.CurrentClaims().TenantID())
}
