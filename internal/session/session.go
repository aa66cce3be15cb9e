// Package session tracks the authenticated identity and its decoded claims.
// It is the only place the tenant of the caller is resolved from.
package session

import (
	"context"
	"fmt"
	"sync"

	"relatorios/internal/common"

	"github.com/rs/zerolog"
)

// Claim names read off the decoded identity token.
const (
	ClaimTenantID = "tenantId"
	ClaimRole     = "role"
)

// Identity is the authenticated principal.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Token string `json:"-"`
}

// Claims is the decoded claims bundle of an identity token.
type Claims map[string]interface{}

func (c Claims) str(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// TenantID returns the tenantId claim, or "".
func (c Claims) TenantID() string { return c.str(ClaimTenantID) }

// Role returns the role claim, or "".
func (c Claims) Role() string { return c.str(ClaimRole) }

// Login is what WaitForLogin resolves with.
type Login struct {
	Identity *Identity
	Claims   Claims
}

// TenantContext is the resolved caller scope used for every store path.
type TenantContext struct {
	Identity *Identity
	TenantID string
	Role     string
}

// Listener observes identity changes. identity is nil after sign-out.
type Listener func(identity *Identity, claims Claims)

// Provider is the identity provider.
type Provider interface {
	// Subscribe registers fn for identity-changed events.
	Subscribe(fn func(identity *Identity)) (unsubscribe func())
	// RefreshClaims force-refreshes and decodes the claims of identity.
	RefreshClaims(ctx context.Context, identity *Identity) (Claims, error)
}

// loginFuture resolves once, for every goroutine waiting on it.
type loginFuture struct {
	done  chan struct{}
	login Login
}

func newLoginFuture() *loginFuture {
	return &loginFuture{done: make(chan struct{})}
}

// Context is the owned session state. Build one at startup with New and pass
// it to the components that need the caller's tenant.
type Context struct {
	provider Provider
	log      zerolog.Logger

	mu        sync.RWMutex
	identity  *Identity
	claims    Claims
	latest    *Identity // identity of the newest event, published once its claims are known
	listeners map[int]Listener
	nextID    int
	pending   *loginFuture
	detach    func()
}

func New(provider Provider, log zerolog.Logger) *Context {
	return &Context{
		provider:  provider,
		log:       log.With().Str("component", "session").Logger(),
		listeners: make(map[int]Listener),
		pending:   newLoginFuture(),
	}
}

// Start subscribes to the provider's identity events.
func (c *Context) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detach != nil || c.provider == nil {
		return
	}
	c.detach = c.provider.Subscribe(func(identity *Identity) {
		c.HandleIdentityChanged(context.Background(), identity)
	})
}

// Close detaches from the provider.
func (c *Context) Close() {
	c.mu.Lock()
	detach := c.detach
	c.detach = nil
	c.mu.Unlock()
	if detach != nil {
		detach()
	}
}

// HandleIdentityChanged applies an identity-changed event: the previous
// identity and claims are dropped, claims are force-refreshed, and only then
// is the new identity published with them. Callers of WaitForLogin during the
// refresh keep waiting instead of seeing an identity without claims.
func (c *Context) HandleIdentityChanged(ctx context.Context, identity *Identity) {
	c.mu.Lock()
	c.latest = identity
	c.identity = nil
	c.claims = nil
	c.mu.Unlock()

	var claims Claims
	if identity != nil && c.provider != nil {
		refreshed, err := c.provider.RefreshClaims(ctx, identity)
		if err != nil {
			c.log.Warn().Err(err).Str("uid", identity.UID).Msg("claims refresh failed")
		} else {
			claims = refreshed
		}
	}

	c.mu.Lock()
	if c.latest != identity {
		// superseded by a later event while refreshing
		c.mu.Unlock()
		return
	}
	c.identity = identity
	c.claims = claims
	listeners := c.snapshotListeners()
	var resolved *loginFuture
	if identity != nil {
		resolved = c.pending
		resolved.login = Login{Identity: identity, Claims: claims}
		c.pending = newLoginFuture()
	}
	c.mu.Unlock()

	if identity != nil {
		c.log.Info().Str("uid", identity.UID).Str("tenant_id", claims.TenantID()).Str("role", claims.Role()).Msg("signed in")
	} else {
		c.log.Info().Msg("signed out")
	}

	for _, l := range listeners {
		c.notify(l, identity, claims)
	}
	if resolved != nil {
		close(resolved.done)
	}
}

// CurrentIdentity returns the cached identity, or nil.
func (c *Context) CurrentIdentity() *Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// CurrentClaims returns the cached claims, or nil.
func (c *Context) CurrentClaims() Claims {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.claims
}

// IsLoggedIn reports whether an identity is present.
func (c *Context) IsLoggedIn() bool {
	return c.CurrentIdentity() != nil
}

// OnIdentityChanged registers l, calls it once with the current state and
// then on every change. The returned function detaches it.
func (c *Context) OnIdentityChanged(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	identity, claims := c.identity, c.claims
	c.mu.Unlock()

	c.notify(l, identity, claims)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// WaitForLogin returns at once when signed in, otherwise blocks until the
// next login or until ctx is done.
func (c *Context) WaitForLogin(ctx context.Context) (Login, error) {
	c.mu.RLock()
	if c.identity != nil {
		login := Login{Identity: c.identity, Claims: c.claims}
		c.mu.RUnlock()
		return login, nil
	}
	future := c.pending
	c.mu.RUnlock()

	select {
	case <-future.done:
		return future.login, nil
	case <-ctx.Done():
		return Login{}, ctx.Err()
	}
}

// RequireTenantContext waits for login when needed and resolves the tenant
// and role claims. A missing tenantId is a *common.MissingTenantError.
func (c *Context) RequireTenantContext(ctx context.Context) (TenantContext, error) {
	login, err := c.WaitForLogin(ctx)
	if err != nil {
		return TenantContext{}, fmt.Errorf("wait for login: %w", err)
	}
	tenantID := login.Claims.TenantID()
	if tenantID == "" {
		return TenantContext{}, &common.MissingTenantError{UID: login.Identity.UID}
	}
	return TenantContext{
		Identity: login.Identity,
		TenantID: tenantID,
		Role:     login.Claims.Role(),
	}, nil
}

func (c *Context) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for i := 0; i < c.nextID; i++ {
		if l, ok := c.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (c *Context) notify(l Listener, identity *Identity, claims Claims) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Interface("panic", r).Msg("identity listener panicked")
		}
	}()
	l(identity, claims)
}
