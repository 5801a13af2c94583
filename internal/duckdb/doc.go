// Package duckdb wraps DuckDB access for session history: opening a
// database, applying the schema, a small table mapper and a SELECT builder.
//
// Rows map to structs through `duckdb` tags:
//
//	type sessionRow struct {
//	    ID   string `duckdb:"id,pk"`
//	    Load float64 `duckdb:"load"`
//	}
//
//	sessions := duckdb.NewTable[sessionRow](db, "sessions")
//	err := sessions.Insert(ctx, &row)
package duckdb
