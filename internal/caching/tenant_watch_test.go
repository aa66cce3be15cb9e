package caching

import (
	"context"
	"testing"
	"time"

	"relatorios/internal/session"
	"relatorios/testhelpers"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateOnTenantChange(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cache := NewCacheService(rdb, zerolog.Nop())

	provider := testhelpers.NewStaticProvider()
	provider.SetClaims("u1", session.Claims{"tenantId": "t1"})
	provider.SetClaims("u2", session.Claims{"tenantId": "t2"})
	sess := session.New(provider, zerolog.Nop())
	sess.Start()
	defer sess.Close()

	unsubscribe := InvalidateOnTenantChange(sess, cache, zerolog.Nop())
	defer unsubscribe()

	provider.Emit(&session.Identity{UID: "u1"})
	require.NoError(t, cache.SetCustomerID(ctx, "t1", "ACME", "c1", time.Minute))

	// same tenant again keeps the entries
	provider.Emit(&session.Identity{UID: "u1"})
	id, err := cache.GetCustomerID(ctx, "t1", "ACME")
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	provider.Emit(&session.Identity{UID: "u2"})
	require.NoError(t, cache.SetCustomerID(ctx, "t2", "BETA", "c2", time.Minute))
	id, err = cache.GetCustomerID(ctx, "t1", "ACME")
	require.NoError(t, err)
	assert.Empty(t, id)

	provider.Emit(nil)
	assert.Empty(t, rdb.data)
}
