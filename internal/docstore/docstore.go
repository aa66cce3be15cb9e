// Package docstore is the path-addressed document database seen by the
// repositories: collections of JSON-like documents, simple field queries and
// merge writes. Implementations return driver errors unwrapped.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPath = errors.New("invalid document path")

// Document is a stored document. Data holds the decoded fields; nested
// objects decode as map[string]interface{}.
type Document struct {
	ID   string
	Path string
	Data map[string]interface{}
}

// Op is a comparison operator of a query filter.
type Op string

const (
	OpEqual        Op = "=="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter is a (field, operator, value) triple.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Query selects documents of one collection. Ordering by a field excludes
// documents that lack it. A zero Limit means no cap.
type Query struct {
	Filters   []Filter
	OrderBy   string
	Direction Direction
	OrderTime bool // OrderBy holds timestamps, compare as instants
	Limit     int
}

// Where appends a filter.
func (q Query) Where(field string, op Op, value interface{}) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Order sets the order clause.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// OrderByTime sets an order clause on a timestamp field.
func (q Query) OrderByTime(field string, dir Direction) Query {
	q = q.Order(field, dir)
	q.OrderTime = true
	return q
}

// Take sets the result cap.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Store is the document database contract.
type Store interface {
	// Query runs q against the collection at collection path.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Get returns the document at path, or nil when it does not exist.
	Get(ctx context.Context, path string) (*Document, error)
	// Add inserts data under a store-assigned id and returns the id.
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)
	// Set writes data at path. With merge, fields absent from data are kept.
	Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error
	// Delete removes the document at path. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
}

type serverTimestamp struct{}

func (serverTimestamp) String() string { return "serverTimestamp()" }

// ServerTimestamp is a write sentinel replaced by the store's clock.
var ServerTimestamp interface{} = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// Join builds a slash separated path, rejecting empty or slashed segments.
func Join(segments ...string) (string, error) {
	for _, s := range segments {
		if s == "" || strings.Contains(s, "/") {
			return "", fmt.Errorf("%w: bad segment %q in %v", ErrInvalidPath, s, segments)
		}
	}
	return strings.Join(segments, "/"), nil
}

// Split separates a document path into its collection path and id.
func Split(path string) (collection, id string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return path[:i], path[i+1:], nil
}
