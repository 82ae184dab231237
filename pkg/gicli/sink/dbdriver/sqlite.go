package dbdriver

import (
	"context"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

// sqliteDialect is the default for database sinks that set no driver
// (spec's Design Notes §9 supplement): no network, an embedded file or
// in-memory database, and last_insert_rowid() instead of a real
// RETURNING clause. sqlite also lacks INFORMATION_SCHEMA, so
// TableExists and Columns are overridden via sqliteDriver below rather
// than the generic ones.
var sqliteDialect = Dialect{
	Name:      "sqlite",
	SQLDriver: "sqlite3",
	Quote:     func(ident string) string { return `"` + ident + `"` },
	ColumnSQL: func(t ColumnType) string {
		switch t {
		case ColumnInteger:
			return "INTEGER"
		case ColumnBigInt:
			return "INTEGER"
		case ColumnReal:
			return "REAL"
		case ColumnDateTime:
			return "TEXT"
		case ColumnJSON:
			return "TEXT"
		default:
			return "TEXT"
		}
	},
	IdentityPK: func(name string) string {
		return fmt.Sprintf(`"%s" INTEGER PRIMARY KEY AUTOINCREMENT`, name)
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

// sqliteDriver wraps genericDriver only to replace TableExists and
// Columns, since sqlite has no INFORMATION_SCHEMA and instead exposes
// sqlite_master and PRAGMA table_info.
type sqliteDriver struct {
	Driver
}

func (s *sqliteDriver) TableExists(ctx context.Context, table string) (bool, error) {
	gd, ok := s.Driver.(*genericDriver)
	if !ok || gd.db == nil {
		return false, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "sqlite driver not connected", nil, false, false)
	}
	var name string
	row := gd.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
	err := row.Scan(&name)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// Columns overrides the generic INFORMATION_SCHEMA query, which sqlite
// does not expose, with PRAGMA table_info.
func (s *sqliteDriver) Columns(ctx context.Context, table string) ([]string, error) {
	gd, ok := s.Driver.(*genericDriver)
	if !ok || gd.db == nil {
		return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "sqlite driver not connected", nil, false, false)
	}
	rows, err := gd.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "reading sqlite columns for "+table, err, true, false)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "scanning sqlite column info", err, false, false)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func init() {
	Register("sqlite", func() Driver {
		return &sqliteDriver{Driver: newGenericDriver(sqliteDialect)}
	})
}
