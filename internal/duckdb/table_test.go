package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID     string  `duckdb:"id,pk"`
	Weight float64 `duckdb:"weight"`
	Count  int64   `duckdb:"count"`
	Note   string
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db, zerolog.Nop(), []string{
		`CREATE TABLE widgets (id TEXT PRIMARY KEY, weight DOUBLE, count BIGINT)`,
	}))
	return db
}

func TestTable_Columns(t *testing.T) {
	tbl := NewTable[widget](nil, "widgets")
	assert.Equal(t, []string{"id", "weight", "count"}, tbl.Columns())
}

func TestTable_InsertGetQuery(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tbl := NewTable[widget](db, "widgets")

	require.NoError(t, tbl.Insert(ctx, &widget{ID: "a", Weight: 1.5, Count: 3}))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.On(tx).InsertAll(ctx, []widget{{ID: "b", Weight: 2, Count: 1}, {ID: "c", Weight: 3, Count: 9}}))
	require.NoError(t, tx.Commit())

	got, err := tbl.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, widget{ID: "a", Weight: 1.5, Count: 3}, *got)

	_, err = tbl.Get(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	rows, err := tbl.Query(ctx, tbl.Builder().Gte("count", 2).OrderBy("-count"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].ID)
	assert.Equal(t, "a", rows[1].ID)
}

func TestTable_InsertAllNeedsTx(t *testing.T) {
	db := openTestDB(t)
	err := NewTable[widget](db, "widgets").InsertAll(context.Background(), []widget{{ID: "x"}})
	assert.ErrorContains(t, err, "requires a transaction")
}

func TestMigrate_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	err := Migrate(ctx, db, zerolog.Nop(), []string{
		`CREATE TABLE extra (id INTEGER)`,
		`THIS IS NOT SQL`,
	})
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_name = 'extra'`).Scan(&n))
	assert.Zero(t, n)
}

func TestOpenDB_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.duckdb")
	db, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	require.NoError(t, db.Close())
	assert.FileExists(t, path)
}

func TestIsConflict(t *testing.T) {
	assert.False(t, IsConflict(nil))
	assert.True(t, IsConflict(errors.New("TransactionContext Error: Conflict on tuple deletion")))
	assert.False(t, IsConflict(errors.New("syntax error")))
}

func TestTable_ReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tbl := NewTable[widget](db, "widgets")

	require.NoError(t, tbl.Insert(ctx, &widget{ID: "a", Weight: 1, Count: 1}))
	require.NoError(t, tbl.Insert(ctx, &widget{ID: "b", Weight: 2, Count: 1}))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tbl.On(tx).ReplaceAll(ctx, []widget{{ID: "a", Weight: 7, Count: 4}}))
	require.NoError(t, tx.Commit())

	got, err := tbl.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, widget{ID: "a", Weight: 7, Count: 4}, *got)

	n, err := tbl.DeleteWhere(ctx, "count", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = tbl.Get(ctx, "b")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
