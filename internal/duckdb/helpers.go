package duckdb

import (
	"fmt"
	"strings"
	"time"
)

// InterpolateQuery substitutes args into query for debug logging only.
// The result is never executed.
func InterpolateQuery(query string, args []any) string {
	for _, arg := range args {
		var lit string
		switch v := arg.(type) {
		case string:
			lit = "'" + strings.ReplaceAll(v, "'", "''") + "'"
		case time.Time:
			lit = "'" + v.UTC().Format(time.RFC3339Nano) + "'"
		case nil:
			lit = "NULL"
		case int, int32, int64, float64, bool:
			lit = fmt.Sprint(v)
		default:
			lit = fmt.Sprintf("'%v'", v)
		}
		query = strings.Replace(query, "?", lit, 1)
	}
	return strings.Join(strings.Fields(query), " ")
}
