package caching

import (
	"context"
	"sync"

	"relatorios/internal/session"

	"github.com/rs/zerolog"
)

// IdentityNotifier is the part of *session.Context the tenant watch needs.
type IdentityNotifier interface {
	OnIdentityChanged(l session.Listener) (unsubscribe func())
}

// InvalidateOnTenantChange drops a tenant's cached lookups once the session
// leaves it, by signing out or by switching to another tenant.
func InvalidateOnTenantChange(sessions IdentityNotifier, cache CacheService, log zerolog.Logger) (unsubscribe func()) {
	var (
		mu      sync.Mutex
		current string
	)
	return sessions.OnIdentityChanged(func(identity *session.Identity, claims session.Claims) {
		next := ""
		if identity != nil {
			next = claims.TenantID()
		}

		mu.Lock()
		prev := current
		current = next
		mu.Unlock()

		if prev == "" || prev == next {
			return
		}
		if err := cache.InvalidateTenantCache(context.Background(), prev); err != nil {
			log.Warn().Err(err).Str("tenant_id", prev).Msg("tenant cache invalidation failed")
			return
		}
		log.Debug().Str("tenant_id", prev).Msg("tenant cache invalidated")
	})
}
