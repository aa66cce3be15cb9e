package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Fields is the open map of named document fields. Known fields are lifted
// into the typed structs; anything else travels untouched.
type Fields map[string]interface{}

// Document field names shared by every tenant collection.
const (
	FieldTenantID    = "tenantId"
	FieldCreatedAt   = "createdAt"
	FieldCreatedAtPT = "criadoEm"
	FieldCreatedBy   = "createdBy"
	FieldUpdatedAt   = "updatedAt"
	FieldUpdatedAtPT = "atualizadoEm"
	FieldUpdatedBy   = "updatedBy"
)

// Recognized spellings of the audit timestamps, in priority order. The first
// entry is the canonical spelling written when none is present.
var (
	CreatedAtAliases = []string{FieldCreatedAt, FieldCreatedAtPT}
	UpdatedAtAliases = []string{FieldUpdatedAt, FieldUpdatedAtPT}
)

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// HasAny reports whether any of keys is present.
func (f Fields) HasAny(keys []string) bool {
	for _, k := range keys {
		if f.Has(k) {
			return true
		}
	}
	return false
}

// First returns the value of the first present key.
func (f Fields) First(keys []string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func (f Fields) String(key string) string {
	return asString(f[key])
}

func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (f Fields) Int(key string) int {
	return asInt(f[key])
}

// Map returns a nested object field, or nil.
func (f Fields) Map(key string) Fields {
	switch v := f[key].(type) {
	case Fields:
		return v
	case map[string]interface{}:
		return Fields(v)
	}
	return nil
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}

func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t != nil {
			return *t
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
