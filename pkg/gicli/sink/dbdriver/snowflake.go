package dbdriver

import (
	"fmt"

	_ "github.com/snowflakedb/gosnowflake"
)

// snowflakeDialect covers a backend Snowflake has no real
// auto-increment for: IDENTITY columns use Snowflake's own
// AUTOINCREMENT syntax backed internally by a sequence, which is the
// closest equivalent to the SQLite/MySQL auto-id column this package's
// other dialects get for free.
var snowflakeDialect = Dialect{
	Name:      "snowflake",
	SQLDriver: "snowflake",
	Quote:     func(ident string) string { return `"` + ident + `"` },
	ColumnSQL: func(t ColumnType) string {
		switch t {
		case ColumnInteger:
			return "NUMBER(10,0)"
		case ColumnBigInt:
			return "NUMBER(19,0)"
		case ColumnReal:
			return "FLOAT"
		case ColumnDateTime:
			return "TIMESTAMP_NTZ"
		case ColumnJSON:
			return "VARIANT"
		default:
			return "STRING"
		}
	},
	IdentityPK: func(name string) string {
		return fmt.Sprintf(`"%s" NUMBER AUTOINCREMENT START 1 INCREMENT 1 PRIMARY KEY`, name)
	},
	Placeholder: func(n int) string { return "?" },
	BuildInsert: func(d *Dialect, table string, cols []string, idColumn string) (string, bool) {
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = "?"
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", d.Quote(table), joinComma(cols), joinComma(placeholders))
		return query, false
	},
}

func init() {
	Register("snowflake", func() Driver { return newGenericDriver(snowflakeDialect) })
}
