package pagedstore

import "strings"

// Dialect renders the row-window clause appended to a base query. The clause
// uses '?' placeholders; they are rebound to the driver's style before the
// query runs.
type Dialect interface {
	WindowClause(w Window) (clause string, args []any)
}

type limitOffsetDialect struct{}

func (limitOffsetDialect) WindowClause(w Window) (string, []any) {
	return "LIMIT ? OFFSET ?", []any{int64(w.Limit), w.Offset}
}

type offsetFetchDialect struct{}

func (offsetFetchDialect) WindowClause(w Window) (string, []any) {
	return "OFFSET ? ROWS FETCH NEXT ? ROWS ONLY", []any{w.Offset, int64(w.Limit)}
}

var (
	// LimitOffset serves PostgreSQL, SQLite, MySQL and most other engines.
	LimitOffset Dialect = limitOffsetDialect{}

	// OffsetFetch serves Oracle 12c+ and SQL Server 2012+. SQL Server only
	// accepts it after an ORDER BY.
	OffsetFetch Dialect = offsetFetchDialect{}
)

// DialectFor picks the dialect matching a database/sql driver name.
func DialectFor(driverName string) Dialect {
	switch strings.ToLower(driverName) {
	case "godror", "oracle", "oci8", "ora", "goracle", "sqlserver", "mssql", "azuresql":
		return OffsetFetch
	}

	return LimitOffset
}
