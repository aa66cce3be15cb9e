package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Schema creates the single documents table. Collection holds the full
// collection path, so tenant prefixes are part of the key.
const Schema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		PRIMARY KEY (collection, id)
	)
`

// stampExpr turns the text[] parameter of sentinel keys into an object of
// now() values, written as UTC RFC3339 like encoded time.Time values.
const stampExpr = `COALESCE((SELECT jsonb_object_agg(k, to_jsonb(to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.US"Z"'))) FROM unnest(%s::text[]) AS k), '{}'::jsonb)`

// PostgresStore keeps documents in a JSONB column. Filter fields compare as
// text (data->>field), which orders ISO dates and RFC3339 timestamps correctly.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	sql, args, err := buildSelect(collection, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Path: collection + "/" + id, Data: data})
	}
	return docs, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, path string) (*Document, error) {
	collection, id, err := Split(path)
	if err != nil {
		return nil, err
	}
	var raw []byte
	err = s.db.QueryRow(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	data, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Path: path, Data: data}, nil
}

func (s *PostgresStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	if collection == "" {
		return "", fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	body, stamps, err := encode(data)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	sql := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb || ` + fmt.Sprintf(stampExpr, "$4") + `)`
	if _, err := s.db.Exec(ctx, sql, collection, id, body, stamps); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Set(ctx context.Context, path string, data map[string]interface{}, merge bool) error {
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	body, stamps, err := encode(data)
	if err != nil {
		return err
	}
	onConflict := `EXCLUDED.data`
	if merge {
		onConflict = `documents.data || EXCLUDED.data`
	}
	sql := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb || ` + fmt.Sprintf(stampExpr, "$4") + `)
		ON CONFLICT (collection, id) DO UPDATE SET data = ` + onConflict
	_, err = s.db.Exec(ctx, sql, collection, id, body, stamps)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	return err
}

var sqlOps = map[Op]string{
	OpEqual:        "=",
	OpLess:         "<",
	OpLessEqual:    "<=",
	OpGreater:      ">",
	OpGreaterEqual: ">=",
}

func buildSelect(collection string, q Query) (string, []interface{}, error) {
	var b strings.Builder
	args := []interface{}{collection}
	b.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	next := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, f := range q.Filters {
		op, ok := sqlOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("docstore: unsupported operator %q", f.Op)
		}
		fmt.Fprintf(&b, ` AND data->>%s %s %s`, next(f.Field), op, next(textValue(f.Value)))
	}
	if q.OrderBy != "" {
		field := next(q.OrderBy)
		if q.OrderTime {
			fmt.Fprintf(&b, ` AND data ? %s ORDER BY (data->>%s)::timestamptz`, field, field)
		} else {
			fmt.Fprintf(&b, ` AND data ? %s ORDER BY data->>%s`, field, field)
		}
		if q.Direction == Desc {
			b.WriteString(` DESC`)
		} else {
			b.WriteString(` ASC`)
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %s`, next(q.Limit))
	}
	return b.String(), args, nil
}

func textValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// encode splits out top-level ServerTimestamp sentinels, which are resolved
// by now() inside the statement.
func encode(data map[string]interface{}) (string, []string, error) {
	plain := make(map[string]interface{}, len(data))
	stamps := []string{}
	for k, v := range data {
		if IsServerTimestamp(v) {
			stamps = append(stamps, k)
			continue
		}
		plain[k] = v
	}
	sort.Strings(stamps)
	body, err := json.Marshal(plain)
	if err != nil {
		return "", nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	return string(body), stamps, nil
}

func decode(raw []byte) (map[string]interface{}, error) {
	data := map[string]interface{}{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("docstore: decode document: %w", err)
	}
	return data, nil
}
