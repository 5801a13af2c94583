package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/coral-mesh/skprof/internal/retry"
)

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DefaultRetry retries writes that hit a DuckDB transaction conflict.
var DefaultRetry = retry.Config{
	MaxRetries:     5,
	InitialBackoff: 10 * time.Millisecond,
	MaxBackoff:     500 * time.Millisecond,
	Jitter:         0.1,
}

// Table maps rows of one table to the struct type T.
type Table[T any] struct {
	db      Execer
	name    string
	columns []string
	fields  []int // struct field index per column
	pk      []string
	retry   retry.Config
}

// NewTable creates a mapper for T, a struct whose mapped fields carry a
// `duckdb:"column[,pk]"` tag. It panics when T is not a struct.
func NewTable[T any](db Execer, name string) *Table[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		panic("duckdb.Table type parameter must be a struct")
	}

	t := &Table[T]{db: db, name: name, retry: DefaultRetry}
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("duckdb")
		if tag == "" || tag == "-" {
			continue
		}
		parts := strings.Split(tag, ",")
		col := strings.TrimSpace(parts[0])
		t.columns = append(t.columns, col)
		t.fields = append(t.fields, i)
		for _, opt := range parts[1:] {
			if strings.TrimSpace(opt) == "pk" {
				t.pk = append(t.pk, col)
			}
		}
	}
	return t
}

// WithRetry returns a copy of the table using cfg for conflicting writes.
func (t *Table[T]) WithRetry(cfg retry.Config) *Table[T] {
	c := *t
	c.retry = cfg
	return &c
}

// On returns a copy of the table bound to another Execer, typically a *sql.Tx.
func (t *Table[T]) On(db Execer) *Table[T] {
	c := *t
	c.db = db
	return &c
}

// Columns returns the mapped column names in struct order.
func (t *Table[T]) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table[T]) insertQuery(verb string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	// #nosec G201 - table and column names come from struct tags.
	return fmt.Sprintf("%s INTO %s (%s) VALUES (%s)", verb, t.name, strings.Join(t.columns, ", "), placeholders)
}

func (t *Table[T]) values(item *T) []any {
	v := reflect.ValueOf(item).Elem()
	out := make([]any, len(t.fields))
	for i, idx := range t.fields {
		out[i] = v.Field(idx).Interface()
	}
	return out
}

// Insert writes one row, retrying on transaction conflicts.
func (t *Table[T]) Insert(ctx context.Context, item *T) error {
	query, args := t.insertQuery("INSERT"), t.values(item)
	return retry.Do(ctx, t.retry, func() error {
		_, err := t.db.ExecContext(ctx, query, args...)
		return err
	}, IsConflict)
}

// InsertAll writes rows through one prepared statement. The table must be
// bound to a transaction with On so the batch is atomic.
func (t *Table[T]) InsertAll(ctx context.Context, items []T) error {
	return t.execAll(ctx, "INSERT", items)
}

// ReplaceAll is InsertAll with INSERT OR REPLACE: rows whose primary key
// already exists are overwritten.
func (t *Table[T]) ReplaceAll(ctx context.Context, items []T) error {
	return t.execAll(ctx, "INSERT OR REPLACE", items)
}

func (t *Table[T]) execAll(ctx context.Context, verb string, items []T) error {
	if len(items) == 0 {
		return nil
	}
	tx, ok := t.db.(*sql.Tx)
	if !ok {
		return fmt.Errorf("batch insert into %s requires a transaction, got %T", t.name, t.db)
	}

	stmt, err := tx.PrepareContext(ctx, t.insertQuery(verb))
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", t.name, err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range items {
		if _, err := stmt.ExecContext(ctx, t.values(&items[i])...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", t.name, err)
		}
	}
	return nil
}

// DeleteWhere removes the rows whose column equals value and returns how
// many were deleted.
func (t *Table[T]) DeleteWhere(ctx context.Context, column string, value any) (int64, error) {
	// #nosec G201 - table and column names are chosen by the caller, not the user.
	res, err := t.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.name, column), value)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

// Get loads the row whose first primary key column equals id.
// It returns sql.ErrNoRows when nothing matches.
func (t *Table[T]) Get(ctx context.Context, id any) (*T, error) {
	if len(t.pk) == 0 {
		return nil, fmt.Errorf("table %s has no primary key", t.name)
	}
	query, args, err := NewQueryBuilder(t.name).Select(t.columns...).Eq(t.pk[0], id).Build()
	if err != nil {
		return nil, err
	}
	return t.scan(t.db.QueryRowContext(ctx, query, args...))
}

// Query runs a builder whose SELECT list must be left empty; the table
// columns are filled in.
func (t *Table[T]) Query(ctx context.Context, b *Builder) ([]T, error) {
	query, args, err := b.Select(t.columns...).Build()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var out []T
	for rows.Next() {
		item, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.name, err)
	}
	return out, nil
}

// Builder returns a SELECT builder for this table.
func (t *Table[T]) Builder() *Builder {
	return NewQueryBuilder(t.name)
}

type scanner interface {
	Scan(dest ...any) error
}

func (t *Table[T]) scan(s scanner) (*T, error) {
	var item T
	v := reflect.ValueOf(&item).Elem()
	dest := make([]any, len(t.fields))
	for i, idx := range t.fields {
		dest[i] = v.Field(idx).Addr().Interface()
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return &item, nil
}

// IsConflict reports whether err is a DuckDB transaction conflict worth
// retrying.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Conflict on") ||
		strings.Contains(msg, "TransactionContext Error") ||
		strings.Contains(msg, "serialization")
}
