package dbdriver

import (
	"fmt"

	_ "github.com/lib/pq"
)

var postgresDialect = Dialect{
	Name:      "postgres",
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
			return "JSONB"
		default:
			return "TEXT"
		}
	},
	IdentityPK: func(name string) string {
		return fmt.Sprintf(`"%s" SERIAL PRIMARY KEY`, name)
	},
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	BuildInsert: func(d *Dialect, table string, cols []string, idColumn string) (string, bool) {
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = d.Placeholder(i + 1)
		}
		returning := ""
		if idColumn != "" {
			returning = " RETURNING " + d.Quote(idColumn)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)%s", d.Quote(table), joinComma(cols), joinComma(placeholders), returning)
		return query, idColumn != ""
	},
}

func init() {
	Register("postgres", func() Driver { return newGenericDriver(postgresDialect) })
}
