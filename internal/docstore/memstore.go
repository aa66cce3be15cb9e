package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store. Documents are deep-copied on the way in and
// out so callers never share maps with the store.
type MemStore struct {
	mu    sync.RWMutex
	colls map[string]map[string]map[string]interface{}
	now   func() time.Time
	newID func() string
}

// MemOption configures a MemStore.
type MemOption func(*MemStore)

// WithClock sets the clock that resolves ServerTimestamp.
func WithClock(now func() time.Time) MemOption {
	return func(s *MemStore) { s.now = now }
}

// WithIDGenerator sets the generator used by Add.
func WithIDGenerator(gen func() string) MemOption {
	return func(s *MemStore) { s.newID = gen }
}

func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{
		colls: make(map[string]map[string]map[string]interface{}),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for id, data := range s.colls[collection] {
		if !matches(data, q) {
			continue
		}
		out = append(out, Document{ID: id, Path: collection + "/" + id, Data: copyMap(data, time.Time{})})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy == "" {
			return out[i].ID < out[j].ID
		}
		a, b := out[i].Data[q.OrderBy], out[j].Data[q.OrderBy]
		if q.OrderTime {
			a, b = instant(a), instant(b)
		}
		c, _ := compare(a, b)
		if c == 0 {
			return out[i].ID < out[j].ID
		}
		if q.Direction == Desc {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	collection, id, err := Split(path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.colls[collection][id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Path: path, Data: copyMap(data, time.Time{})}, nil
}

func (s *MemStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if collection == "" {
		return "", fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.collection(collection)[id] = copyMap(data, s.now())
	return id, nil
}

func (s *MemStore) Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	incoming := copyMap(data, s.now())
	coll := s.collection(collection)
	existing, ok := coll[id]
	if !merge || !ok {
		coll[id] = incoming
		return nil
	}
	for k, v := range incoming {
		existing[k] = v
	}
	return nil
}

func (s *MemStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.colls[collection], id)
	return nil
}

// Len returns the number of documents in a collection.
func (s *MemStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[collection])
}

func (s *MemStore) collection(name string) map[string]map[string]interface{} {
	coll, ok := s.colls[name]
	if !ok {
		coll = make(map[string]map[string]interface{})
		s.colls[name] = coll
	}
	return coll
}

func matches(data map[string]interface{}, q Query) bool {
	if q.OrderBy != "" {
		if _, ok := data[q.OrderBy]; !ok {
			return false
		}
	}
	for _, f := range q.Filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		c, comparable := compare(v, f.Value)
		if !comparable {
			return false
		}
		switch f.Op {
		case OpEqual:
			if c != 0 {
				return false
			}
		case OpLess:
			if c >= 0 {
				return false
			}
		case OpLessEqual:
			if c > 0 {
				return false
			}
		case OpGreater:
			if c <= 0 {
				return false
			}
		case OpGreaterEqual:
			if c < 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// compare orders two field values of the same kind. Values of different
// kinds are not comparable.
func compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// instant parses RFC3339 strings so they order against time.Time values.
func instant(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return v
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// copyMap deep-copies data. When now is non-zero, ServerTimestamp sentinels
// are replaced by it.
func copyMap(data map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = copyValue(v, now)
	}
	return out
}

func copyValue(v interface{}, now time.Time) interface{} {
	if IsServerTimestamp(v) && !now.IsZero() {
		return now
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t, now)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e, now)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = copyValue(iter.Value().Interface(), now)
		}
		return out
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = copyValue(rv.Index(i).Interface(), now)
		}
		return out
	}
	return v
}
