package testhelpers

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"relatorios/internal/docstore"
	"relatorios/internal/session"

	"github.com/rs/zerolog"
)

// FixedNow is the clock of every store built by NewMemStore.
var FixedNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

// StaticProvider is a session.Provider whose claims are set per uid.
type StaticProvider struct {
	mu      sync.Mutex
	claims  map[string]session.Claims
	errs    map[string]error
	subs    []func(*session.Identity)
	refresh int
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		claims: make(map[string]session.Claims),
		errs:   make(map[string]error),
	}
}

// SetClaims sets what RefreshClaims returns for uid.
func (p *StaticProvider) SetClaims(uid string, claims session.Claims) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims[uid] = claims
}

// FailRefresh makes RefreshClaims fail for uid.
func (p *StaticProvider) FailRefresh(uid string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[uid] = err
}

func (p *StaticProvider) Subscribe(fn func(*session.Identity)) func() {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
	return func() {}
}

func (p *StaticProvider) RefreshClaims(_ context.Context, identity *session.Identity) (session.Claims, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refresh++
	if err := p.errs[identity.UID]; err != nil {
		return nil, err
	}
	return p.claims[identity.UID], nil
}

// Refreshes returns how many times RefreshClaims ran.
func (p *StaticProvider) Refreshes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refresh
}

// Emit announces identity to every subscriber.
func (p *StaticProvider) Emit(identity *session.Identity) {
	p.mu.Lock()
	subs := append([]func(*session.Identity){}, p.subs...)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(identity)
	}
}

// SignedInSession returns a session already logged in as uid with the given
// tenant and role claims. An empty tenantID leaves the claim out.
func SignedInSession(t *testing.T, uid, tenantID, role string) *session.Context {
	t.Helper()

	claims := session.Claims{}
	if tenantID != "" {
		claims[session.ClaimTenantID] = tenantID
	}
	if role != "" {
		claims[session.ClaimRole] = role
	}
	p := NewStaticProvider()
	p.SetClaims(uid, claims)

	s := session.New(p, zerolog.Nop())
	s.Start()
	t.Cleanup(s.Close)
	p.Emit(&session.Identity{UID: uid})
	return s
}

// NewMemStore returns a memory store with the FixedNow clock and
// sequential ids (doc-1, doc-2, ...).
func NewMemStore() *docstore.MemStore {
	var mu sync.Mutex
	n := 0
	return docstore.NewMemStore(
		docstore.WithClock(func() time.Time { return FixedNow }),
		docstore.WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return "doc-" + strconv.Itoa(n)
		}),
	)
}

// Call records one operation seen by CountingStore.
type Call struct {
	Op    string
	Path  string
	Data  map[string]interface{}
	Merge bool
	Query docstore.Query
}

// CountingStore records every call before forwarding it. When Err is set,
// every call fails with it instead.
type CountingStore struct {
	Inner docstore.Store
	Err   error

	mu    sync.Mutex
	calls []Call
}

func NewCountingStore(inner docstore.Store) *CountingStore {
	return &CountingStore{Inner: inner}
}

func (s *CountingStore) record(c Call) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

// Calls returns the recorded calls in order.
func (s *CountingStore) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Ops returns the recorded operation names in order.
func (s *CountingStore) Ops() []string {
	var ops []string
	for _, c := range s.Calls() {
		ops = append(ops, c.Op)
	}
	return ops
}

func (s *CountingStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	s.record(Call{Op: "query", Path: collection, Query: q})
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Inner.Query(ctx, collection, q)
}

func (s *CountingStore) Get(ctx context.Context, path string) (*docstore.Document, error) {
	s.record(Call{Op: "get", Path: path})
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Inner.Get(ctx, path)
}

func (s *CountingStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	s.record(Call{Op: "add", Path: collection, Data: data})
	if s.Err != nil {
		return "", s.Err
	}
	return s.Inner.Add(ctx, collection, data)
}

func (s *CountingStore) Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error {
	s.record(Call{Op: "set", Path: path, Data: data, Merge: merge})
	if s.Err != nil {
		return s.Err
	}
	return s.Inner.Set(ctx, path, data, merge)
}

func (s *CountingStore) Delete(ctx context.Context, path string) error {
	s.record(Call{Op: "delete", Path: path})
	if s.Err != nil {
		return s.Err
	}
	return s.Inner.Delete(ctx, path)
}
