package sink

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
	"github.com/tigerroll/gicli/pkg/gicli/logging"
	"github.com/tigerroll/gicli/pkg/gicli/pathutil"
	"github.com/tigerroll/gicli/pkg/gicli/sink/dbdriver"
)

// identifierKeys is the reserved set spec §4.7 step 4 checks for on the
// first record to decide whether the payload already carries its own
// primary key.
var identifierKeys = []string{"id", "ID", "codigo", "Codigo", "codigoEmpresa", "CodigoEmpresa"}

var datetimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// Substitutor is the narrow interface database-sink needs to resolve
// $ENV_/$SESSION_ placeholders embedded in a connection string.
type Substitutor interface {
	String(s string) string
}

// DatabaseContext carries the ambient fields the executor attaches to
// every inserted row (spec §4.7 step 7) and resolves the effective
// connection string from.
type DatabaseContext struct {
	JobID            string
	OriginName       string
	OriginConnString string
	Timestamp        time.Time
}

// WriteDatabase implements the database sink variant, spec §4.7. It
// returns the number of rows actually inserted alongside any hard
// failure, so callers (and tests) can tell "wrote nothing because the
// response was empty" apart from "every row's insert failed".
func WriteDatabase(ctx context.Context, result HTTPResult, cfg config.DatabaseOutput, dctx DatabaseContext, sub Substitutor, log *logging.Logger) (int, error) {
	if log == nil {
		log = logging.Nop()
	}

	connStr := effectiveConnectionString(cfg, dctx, sub)
	if connStr == "" {
		return 0, gicerr.New(gicerr.DatabaseConnectionFailed, "sink", "connection string resolved empty", nil, false, false)
	}

	driverName := cfg.Driver
	if driverName == "" {
		driverName = "sqlite"
	}

	drv, err := dbdriver.New(driverName)
	if err != nil {
		return 0, err
	}
	log.Debugf("sink/database: connecting to %s via %s", logging.RedactConnectionString(connStr), driverName)
	if err := drv.Connect(ctx, connStr); err != nil {
		return 0, err
	}
	defer drv.Disconnect()

	rows, err := selectRowSet(result.Data, cfg.DataPath)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		log.Warnf("sink/database: no rows to insert for table %s", cfg.Table)
		if _, err := prepareTable(ctx, drv, cfg, emptySample(cfg), false); err != nil {
			return 0, err
		}
		return 0, nil
	}

	hasIdentifier := recordHasIdentifier(rows[0])

	targetColumns, err := prepareTable(ctx, drv, cfg, rows[0], hasIdentifier)
	if err != nil {
		return 0, err
	}
	attachMetadata := containsAll(targetColumns, "job_id", "timestamp", "origin")

	inserted := 0
	for _, record := range rows {
		row, orderedCols, idColumn := buildRow(record, cfg.Columns, hasIdentifier, dctx, attachMetadata)
		if _, err := drv.Insert(ctx, cfg.Table, orderedCols, row, idColumn); err != nil {
			log.Warnf("sink/database: row insert failed, skipping: %v", err)
			continue
		}
		inserted++
	}
	log.Infof("sink/database: inserted %d/%d rows into %s", inserted, len(rows), cfg.Table)
	return inserted, nil
}

// emptySample builds a placeholder record for prepareTable when the row
// set came back empty, so the target table still gets created per spec
// §8's "table created if configured" boundary. It carries the configured
// columns mapping's target names (typed as text, since there is no real
// value to infer a type from) or, absent a mapping, no fields at all —
// just the synthesized id/created_at columns inferColumns always adds.
func emptySample(cfg config.DatabaseOutput) map[string]any {
	sample := make(map[string]any, len(cfg.Columns))
	for _, column := range cfg.Columns {
		sample[column] = ""
	}
	return sample
}

func containsAll(haystack []string, needles ...string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}

func effectiveConnectionString(cfg config.DatabaseOutput, dctx DatabaseContext, sub Substitutor) string {
	raw := cfg.ConnectionString
	if raw == "" {
		raw = dctx.OriginConnString
	}
	if raw == "" {
		return ""
	}
	if sub != nil {
		return sub.String(raw)
	}
	return raw
}

// selectRowSet navigates dataPath (if set) into data and coerces the
// result into a row slice. An object whose keys are consecutive
// decimal integers ("0","1","2",...) is treated as an array in key
// order, per spec §4.7 step 3.
func selectRowSet(data any, dataPath string) ([]map[string]any, error) {
	root := data
	if dataPath != "" {
		v, ok := pathutil.Get(data, dataPath)
		if !ok {
			return nil, gicerr.Newf(gicerr.SinkFailure, "sink", "data_path %q did not resolve in the response", dataPath)
		}
		root = v
	}

	switch t := root.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out, nil
	case map[string]any:
		if arr, ok := asIndexedArray(t); ok {
			return arr, nil
		}
		return []map[string]any{t}, nil
	default:
		return nil, gicerr.Newf(gicerr.SinkFailure, "sink", "selected row set is neither an object nor an array")
	}
}

func asIndexedArray(m map[string]any) ([]map[string]any, bool) {
	out := make([]map[string]any, len(m))
	for k, v := range m {
		n, err := parseDecimalIndex(k)
		if err != nil || n < 0 || n >= len(m) {
			return nil, false
		}
		rec, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		out[n] = rec
	}
	return out, true
}

func parseDecimalIndex(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, gicerr.Newf(gicerr.SinkFailure, "sink", "empty key")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, gicerr.Newf(gicerr.SinkFailure, "sink", "non-decimal key %q", s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

func recordHasIdentifier(record map[string]any) bool {
	for _, key := range identifierKeys {
		if _, ok := record[key]; ok {
			return true
		}
	}
	return false
}

// prepareTable implements spec §4.7 steps 5-6 and returns the target
// table's resulting column names, so callers can tell whether it has
// room for the job_id/timestamp/origin metadata columns before trying
// to insert them.
func prepareTable(ctx context.Context, drv dbdriver.Driver, cfg config.DatabaseOutput, sample map[string]any, hasIdentifier bool) ([]string, error) {
	if cfg.ClearBeforeInsert {
		if err := drv.DropTable(ctx, cfg.Table); err != nil {
			return nil, err
		}
	}

	exists, err := drv.TableExists(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}

	var columns []string
	if !exists {
		columns, err = createTable(ctx, drv, cfg, sample, hasIdentifier)
		if err != nil {
			return nil, err
		}
	} else {
		columns, err = drv.Columns(ctx, cfg.Table)
		if err != nil {
			return nil, err
		}
	}

	if cfg.ClearBeforeInsert {
		if err := drv.ClearTable(ctx, cfg.Table); err != nil {
			return nil, err
		}
	}
	return columns, nil
}

func createTable(ctx context.Context, drv dbdriver.Driver, cfg config.DatabaseOutput, sample map[string]any, hasIdentifier bool) ([]string, error) {
	columns := inferColumns(sample, hasIdentifier)
	if err := drv.CreateTable(ctx, cfg.Table, columns); err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names, nil
}

// inferColumns implements spec §4.7.1's type inference table over a
// representative record, adding the synthesized identity primary key
// only when the record carries none of the reserved identifier keys —
// when it does, that column is declared as a plain primary key instead,
// per spec §8's auto-id policy — and a created_at column when the
// record has none.
func inferColumns(sample map[string]any, hasIdentifier bool) []dbdriver.Column {
	var columns []dbdriver.Column
	if !hasIdentifier {
		columns = append(columns, dbdriver.Column{Name: "id", Type: dbdriver.ColumnInteger, Identity: true})
	}
	idName := ""
	if hasIdentifier {
		idName = firstIdentifierColumn(sample)
	}
	sawCreatedAt := false
	for key, value := range sample {
		columns = append(columns, dbdriver.Column{Name: key, Type: inferColumnType(value), PrimaryKey: key == idName})
		if key == "created_at" {
			sawCreatedAt = true
		}
	}
	if !sawCreatedAt {
		columns = append(columns, dbdriver.Column{Name: "created_at", Type: dbdriver.ColumnDateTime})
	}
	return columns
}

func inferColumnType(v any) dbdriver.ColumnType {
	switch t := v.(type) {
	case nil:
		return dbdriver.ColumnText
	case bool:
		return dbdriver.ColumnInteger
	case float64:
		if t == float64(int32(t)) {
			return dbdriver.ColumnInteger
		}
		if t == float64(int64(t)) {
			return dbdriver.ColumnBigInt
		}
		return dbdriver.ColumnReal
	case string:
		if datetimePattern.MatchString(t) {
			return dbdriver.ColumnDateTime
		}
		return dbdriver.ColumnText
	case map[string]any, []any:
		return dbdriver.ColumnJSON
	default:
		return dbdriver.ColumnText
	}
}

// buildRow projects record into the insertable row map, applying the
// columns mapping (if any) or the record's own fields, attaching
// job_id/timestamp/origin metadata only when the target table actually
// has matching columns, and dropping an `id` the record carries when no
// identifier column was declared (so the identity column assigns one),
// per spec §4.7 step 7.
func buildRow(record map[string]any, columnsMapping map[string]string, hasIdentifier bool, dctx DatabaseContext, attachMetadata bool) (row map[string]any, orderedCols []string, idColumn string) {
	row = make(map[string]any)

	if len(columnsMapping) == 0 {
		for k, v := range record {
			if k == "created_at" || k == "updated_at" {
				continue
			}
			row[k] = serializeIfNested(v)
			orderedCols = append(orderedCols, k)
		}
	} else {
		for path, column := range columnsMapping {
			v, ok := pathutil.Get(record, path)
			if !ok {
				continue
			}
			row[column] = serializeIfNested(v)
			orderedCols = append(orderedCols, column)
		}
	}

	if !hasIdentifier {
		delete(row, "id")
		orderedCols = removeCol(orderedCols, "id")
	} else {
		idColumn = firstIdentifierColumn(row)
	}

	if attachMetadata {
		row["job_id"] = dctx.JobID
		row["timestamp"] = dctx.Timestamp.Format(time.RFC3339)
		row["origin"] = dctx.OriginName
		orderedCols = append(orderedCols, "job_id", "timestamp", "origin")
	}

	return row, orderedCols, idColumn
}

func firstIdentifierColumn(row map[string]any) string {
	for _, key := range identifierKeys {
		if _, ok := row[key]; ok {
			return key
		}
	}
	return ""
}

func removeCol(cols []string, name string) []string {
	out := cols[:0]
	for _, c := range cols {
		if c != name {
			out = append(out, c)
		}
	}
	return out
}

func serializeIfNested(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return v
	}
}
