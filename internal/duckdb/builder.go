package duckdb

import (
	"fmt"
	"strings"
)

// Builder constructs SELECT queries.
type Builder struct {
	table   string
	columns []string
	where   []string
	args    []any
	orderBy []string
	limit   int
}

// NewQueryBuilder creates a builder over table.
func NewQueryBuilder(table string) *Builder {
	return &Builder{table: table}
}

// Select appends columns or expressions to the SELECT list.
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds a condition. Conditions are joined with AND.
func (b *Builder) Where(expr string, args ...any) *Builder {
	b.where = append(b.where, expr)
	b.args = append(b.args, args...)
	return b
}

// Eq adds "column = ?". An empty string value adds nothing.
func (b *Builder) Eq(column string, value any) *Builder {
	if s, ok := value.(string); ok && s == "" {
		return b
	}
	return b.Where(column+" = ?", value)
}

// Gte adds "column >= ?".
func (b *Builder) Gte(column string, value any) *Builder {
	return b.Where(column+" >= ?", value)
}

// Lte adds "column <= ?".
func (b *Builder) Lte(column string, value any) *Builder {
	return b.Where(column+" <= ?", value)
}

// OrderBy adds sort columns; a "-" prefix sorts descending.
func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, c := range columns {
		if rest, ok := strings.CutPrefix(c, "-"); ok {
			c = rest + " DESC"
		}
		b.orderBy = append(b.orderBy, c)
	}
	return b
}

// Limit caps the number of rows. Zero or less means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Build returns the query and its arguments.
func (b *Builder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, fmt.Errorf("table name is required")
	}

	var q strings.Builder
	q.WriteString("SELECT ")
	if len(b.columns) == 0 {
		q.WriteString("*")
	} else {
		q.WriteString(strings.Join(b.columns, ", "))
	}
	q.WriteString(" FROM ")
	q.WriteString(b.table)

	if len(b.where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(b.where, " AND "))
	}
	if len(b.orderBy) > 0 {
		q.WriteString(" ORDER BY ")
		q.WriteString(strings.Join(b.orderBy, ", "))
	}

	args := append([]any(nil), b.args...)
	if b.limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	return q.String(), args, nil
}
