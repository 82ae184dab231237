package dbdriver

import "fmt"

// redshiftDialect reuses the lib/pq wire protocol (Redshift speaks the
// Postgres protocol) but keeps its own Dialect value since its DDL
// diverges: no SERIAL, and IDENTITY has different syntax and no
// RETURNING support on INSERT.
var redshiftDialect = Dialect{
	Name:      "redshift",
	SQLDriver: "postgres",
	Quote:     func(ident string) string { return `"` + ident + `"` },
	ColumnSQL: func(t ColumnType) string {
		switch t {
		case ColumnInteger:
			return "INTEGER"
		case ColumnBigInt:
			return "BIGINT"
		case ColumnReal:
			return "DOUBLE PRECISION"
		case ColumnDateTime:
			return "TIMESTAMP"
		case ColumnJSON:
			return "VARCHAR(65535)"
		default:
			return "VARCHAR(65535)"
		}
	},
	IdentityPK: func(name string) string {
		return fmt.Sprintf(`"%s" INTEGER IDENTITY(1,1) PRIMARY KEY`, name)
	},
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	BuildInsert: func(d *Dialect, table string, cols []string, idColumn string) (string, bool) {
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = d.Placeholder(i + 1)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.Quote(table), joinComma(cols), joinComma(placeholders))
		return query, false
	},
}

func init() {
	Register("redshift", func() Driver { return newGenericDriver(redshiftDialect) })
}
