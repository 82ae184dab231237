package dbdriver

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = Dialect{
	Name:      "mysql",
	SQLDriver: "mysql",
	Quote:     func(ident string) string { return "`" + ident + "`" },
	ColumnSQL: func(t ColumnType) string {
		switch t {
		case ColumnInteger:
			return "INT"
		case ColumnBigInt:
			return "BIGINT"
		case ColumnReal:
			return "DOUBLE"
		case ColumnDateTime:
			return "DATETIME"
		case ColumnJSON:
			return "JSON"
		default:
			return "TEXT"
		}
	},
	IdentityPK: func(name string) string {
		return fmt.Sprintf("`%s` INT AUTO_INCREMENT PRIMARY KEY", name)
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
	Register("mysql", func() Driver { return newGenericDriver(mysqlDialect) })
}
