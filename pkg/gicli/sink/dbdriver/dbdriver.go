// Package dbdriver implements the database backends the Database Sink
// dispatches to. The registration pattern is grounded directly on the
// teacher's pkg/batch/database/connector package: a small interface
// (there, DBConnector; here, Driver), a package-level map, and each
// backend file self-registering via init(), so adding a backend never
// touches the dispatcher. Only the SQL Server dialect is exercised end
// to end by spec's contract (§4.7); the rest share the same generic
// driver with a dialect table describing their DDL/DML differences.
package dbdriver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

// ColumnType is one of the inferred SQL types from spec §4.7.1.
type ColumnType string

const (
	ColumnText     ColumnType = "TEXT"
	ColumnInteger  ColumnType = "INTEGER"
	ColumnBigInt   ColumnType = "BIGINT"
	ColumnReal     ColumnType = "REAL"
	ColumnDateTime ColumnType = "DATETIME"
	ColumnJSON     ColumnType = "JSON" // spec's NVARCHAR(MAX), dialect-mapped
)

// Column is one column to create, in declaration order.
type Column struct {
	Name       string
	Type       ColumnType
	Identity   bool // true only for the synthesized auto-increment id column
	PrimaryKey bool // true when this column is a detected identifier (spec §4.7 step 5/§8's auto-id policy)
}

// Driver is the closed interface every backend implements, spec §9's
// generalization of the teacher's single-method DBConnector into the
// full set of operations the database sink needs.
type Driver interface {
	Connect(ctx context.Context, connStr string) error
	Disconnect() error
	TableExists(ctx context.Context, table string) (bool, error)
	Columns(ctx context.Context, table string) ([]string, error)
	CreateTable(ctx context.Context, table string, columns []Column) error
	DropTable(ctx context.Context, table string) error
	ClearTable(ctx context.Context, table string) error
	Insert(ctx context.Context, table string, orderedCols []string, row map[string]any, idColumn string) (any, error)
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// registry maps a config driver name to a constructor, mirroring the
// teacher's connectors map keyed by DatabaseConfig.Type.
var registry = make(map[string]func() Driver)

// Register adds a constructor under name. Called from each backend's init().
func Register(name string, ctor func() Driver) {
	registry[name] = ctor
}

// New constructs a fresh Driver instance for name, or an error if no
// backend registered under that name.
func New(name string) (Driver, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, gicerr.Newf(gicerr.DatabaseConnectionFailed, "dbdriver", "unsupported database driver %q", name)
	}
	return ctor(), nil
}

// Dialect captures the DDL/DML variance between backends that share
// the genericDriver implementation below.
type Dialect struct {
	Name       string
	SQLDriver  string // the name passed to sql.Open
	Quote      func(ident string) string
	ColumnSQL  func(t ColumnType) string
	IdentityPK func(name string) string // full column definition for an auto-increment primary key
	Placeholder func(n int) string      // n is 1-based

	// BuildInsert returns the INSERT statement for table/cols. If
	// returning is true, the statement is executed with QueryRowContext
	// and the single result column scanned into the returned id;
	// otherwise it is executed with ExecContext and the id comes from
	// sql.Result.LastInsertId (ignored, with idColumn left unset, for
	// dialects supporting neither).
	BuildInsert func(d *Dialect, table string, cols []string, idColumn string) (query string, returning bool)

	// PrepareConnString, when set, rewrites the substituted connection
	// string before sql.Open sees it — the sqlserver dialect uses this
	// to parse its ADO.NET-style fields and apply the
	// trustServerCertificate/encrypt override, spec §4.7 step 2.
	PrepareConnString func(raw string) (string, error)

	// RequestTimeout bounds the whole Connect call (open + ping) when
	// set; zero means the caller's context governs.
	RequestTimeout time.Duration
}

// genericDriver implements Driver against database/sql, parameterized
// by a Dialect. Every backend file in this package is a thin wrapper:
// a Dialect value, an init() registering it, and the blank import of
// the matching driver package.
type genericDriver struct {
	dialect Dialect
	db      *sql.DB
}

func newGenericDriver(dialect Dialect) Driver {
	return &genericDriver{dialect: dialect}
}

func (g *genericDriver) Connect(ctx context.Context, connStr string) error {
	if g.dialect.PrepareConnString != nil {
		normalized, err := g.dialect.PrepareConnString(connStr)
		if err != nil {
			return gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "parsing "+g.dialect.Name+" connection string", err, false, false)
		}
		connStr = normalized
	}

	if g.dialect.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.dialect.RequestTimeout)
		defer cancel()
	}

	db, err := sql.Open(g.dialect.SQLDriver, connStr)
	if err != nil {
		return gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "opening "+g.dialect.Name+" connection", err, false, false)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "pinging "+g.dialect.Name, err, true, false)
	}
	g.db = db
	return nil
}

func (g *genericDriver) Disconnect() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

func (g *genericDriver) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = ` + g.dialect.Placeholder(1)
	row := g.db.QueryRowContext(ctx, query, table)
	if err := row.Scan(&count); err != nil {
		return false, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "checking table existence", err, true, false)
	}
	return count > 0, nil
}

func (g *genericDriver) Columns(ctx context.Context, table string) ([]string, error) {
	query := `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = ` + g.dialect.Placeholder(1)
	rows, err := g.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "reading columns for "+table, err, true, false)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "scanning column name", err, false, false)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func (g *genericDriver) CreateTable(ctx context.Context, table string, columns []Column) error {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.Identity {
			defs = append(defs, g.dialect.IdentityPK(c.Name))
			continue
		}
		def := fmt.Sprintf("%s %s", g.dialect.Quote(c.Name), g.dialect.ColumnSQL(c.Type))
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", g.dialect.Quote(table), joinComma(defs))
	if _, err := g.db.ExecContext(ctx, ddl); err != nil {
		return gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "creating table "+table, err, false, false)
	}
	return nil
}

// DropTable implements spec §4.7 step 5's clear_before_insert branch: the
// table is dropped outright so schema re-inference runs against a clean
// slate, rather than merely emptied.
func (g *genericDriver) DropTable(ctx context.Context, table string) error {
	ddl := "DROP TABLE IF EXISTS " + g.dialect.Quote(table)
	if _, err := g.db.ExecContext(ctx, ddl); err != nil {
		return gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "dropping table "+table, err, false, false)
	}
	return nil
}

func (g *genericDriver) ClearTable(ctx context.Context, table string) error {
	if _, err := g.db.ExecContext(ctx, "TRUNCATE TABLE "+g.dialect.Quote(table)); err == nil {
		return nil
	}
	// spec §4.7 step 6: truncate failure (typically a foreign-key
	// constraint) falls back to DELETE FROM.
	if _, err := g.db.ExecContext(ctx, "DELETE FROM "+g.dialect.Quote(table)); err != nil {
		return gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "clearing table "+table, err, false, false)
	}
	return nil
}

func (g *genericDriver) Insert(ctx context.Context, table string, orderedCols []string, row map[string]any, idColumn string) (any, error) {
	quotedCols := make([]string, len(orderedCols))
	args := make([]any, len(orderedCols))
	for i, c := range orderedCols {
		quotedCols[i] = g.dialect.Quote(c)
		args[i] = row[c]
	}
	query, returning := g.dialect.BuildInsert(&g.dialect, table, quotedCols, idColumn)

	if returning {
		var id any
		if err := g.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, gicerr.New(gicerr.RowInsertFailed, "dbdriver", "inserting row into "+table, err, false, true)
		}
		return id, nil
	}

	result, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, gicerr.New(gicerr.RowInsertFailed, "dbdriver", "inserting row into "+table, err, false, true)
	}
	if idColumn == "" {
		return nil, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, nil // dialect doesn't support last-insert-id; not fatal to the row
	}
	return id, nil
}

func (g *genericDriver) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "querying", err, true, false)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "reading result columns", err, false, false)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, gicerr.New(gicerr.DatabaseConnectionFailed, "dbdriver", "scanning row", err, false, false)
		}
		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			rowMap[col] = values[i]
		}
		out = append(out, rowMap)
	}
	return out, rows.Err()
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
