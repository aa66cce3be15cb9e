package identity

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"relatorios/internal/session"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource hands out the freshest identity token available.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// FileToken reads the token from a file on every call, so an external
// process can rotate it.
type FileToken struct {
	Path string
}

func (f FileToken) Token(context.Context) (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// TokenProvider is a session.Provider backed by signed identity tokens.
type TokenProvider struct {
	verifier *Verifier
	source   TokenSource

	mu   sync.Mutex
	subs map[int]func(*session.Identity)
	next int
}

// NewTokenProvider builds a provider. source may be nil, in which case
// claims refresh re-verifies the token the identity signed in with.
func NewTokenProvider(verifier *Verifier, source TokenSource) *TokenProvider {
	return &TokenProvider{
		verifier: verifier,
		source:   source,
		subs:     make(map[int]func(*session.Identity)),
	}
}

func (p *TokenProvider) Subscribe(fn func(*session.Identity)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.next
	p.next++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SignIn verifies raw and announces the identity it carries.
func (p *TokenProvider) SignIn(ctx context.Context, raw string) (*session.Identity, error) {
	claims, err := p.verifier.Verify(raw)
	if err != nil {
		return nil, err
	}
	identity := identityFromClaims(claims, raw)
	if identity.UID == "" {
		return nil, fmt.Errorf("%w: token carries no subject", ErrInvalidToken)
	}
	p.emit(identity)
	return identity, nil
}

// SignOut announces that no identity is present.
func (p *TokenProvider) SignOut() {
	p.emit(nil)
}

// RefreshClaims pulls a fresh token when a source is configured, verifies it
// and returns its claims. The token must still belong to identity.
func (p *TokenProvider) RefreshClaims(ctx context.Context, identity *session.Identity) (session.Claims, error) {
	raw := identity.Token
	if p.source != nil {
		fresh, err := p.source.Token(ctx)
		if err != nil {
			return nil, err
		}
		if fresh != "" {
			raw = fresh
		}
	}
	claims, err := p.verifier.Verify(raw)
	if err != nil {
		return nil, err
	}
	if uid := identityFromClaims(claims, raw).UID; uid != identity.UID {
		return nil, fmt.Errorf("%w: refreshed token belongs to %q, not %q", ErrInvalidToken, uid, identity.UID)
	}
	return session.Claims(claims), nil
}

func (p *TokenProvider) emit(identity *session.Identity) {
	p.mu.Lock()
	subs := make([]func(*session.Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(identity)
	}
}

func identityFromClaims(claims jwt.MapClaims, raw string) *session.Identity {
	uid, _ := claims.GetSubject()
	if uid == "" {
		uid, _ = claims["user_id"].(string)
	}
	email, _ := claims["email"].(string)
	return &session.Identity{UID: uid, Email: email, Token: raw}
}
