package dbdriver

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
)

// sqlServerDialect is the backend spec §4.7 requires end to end:
// INFORMATION_SCHEMA-based existence check, IDENTITY primary key, and
// OUTPUT INSERTED.<id> on insert.
var sqlServerDialect = Dialect{
	Name:               "sqlserver",
	SQLDriver:          "sqlserver",
	PrepareConnString:  prepareSQLServerConnString,
	RequestTimeout:     50 * time.Second,
	Quote:              func(ident string) string { return "[" + ident + "]" },
	ColumnSQL: func(t ColumnType) string {
		switch t {
		case ColumnInteger:
			return "INTEGER"
		case ColumnBigInt:
			return "BIGINT"
		case ColumnReal:
			return "REAL"
		case ColumnDateTime:
			return "DATETIME"
		case ColumnJSON:
			return "NVARCHAR(MAX)"
		default:
			return "NVARCHAR(MAX)"
		}
	},
	IdentityPK: func(name string) string {
		return fmt.Sprintf("[%s] INT IDENTITY(1,1) PRIMARY KEY", name)
	},
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	BuildInsert: func(d *Dialect, table string, cols []string, idColumn string) (string, bool) {
		placeholders := make([]string, len(cols))
		for i := range cols {
			placeholders[i] = d.Placeholder(i + 1)
		}
		output := ""
		if idColumn != "" {
			output = fmt.Sprintf(" OUTPUT INSERTED.%s", d.Quote(idColumn))
		}
		query := fmt.Sprintf("INSERT INTO %s (%s)%s VALUES (%s)",
			d.Quote(table), joinComma(cols), output, joinComma(placeholders))
		return query, idColumn != ""
	},
}

func init() {
	Register("sqlserver", func() Driver { return newGenericDriver(sqlServerDialect) })
}

// sqlServerConnectTimeout is the DSN-level "connection timeout" (login/dial
// budget), distinct from the dialect's RequestTimeout which bounds the
// whole Connect+Ping call.
const sqlServerConnectTimeout = 30 * time.Second

// prepareSQLServerConnString parses an ADO.NET-style connection string
// (key=value;key=value, case-insensitive keys) into
// {server, port, database, user, password, encrypt, trustServerCertificate,
// appName} and rewrites it into a go-mssqldb URL DSN, per spec §4.7 step 2.
// A trustServerCertificate of true forces encrypt=false unless encrypt was
// explicitly set to false already.
func prepareSQLServerConnString(raw string) (string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return "", fmt.Errorf("dbdriver: malformed connection string segment %q", part)
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		fields[key] = strings.TrimSpace(kv[1])
	}

	server := fields["server"]
	if server == "" {
		return "", fmt.Errorf("dbdriver: sqlserver connection string missing server")
	}
	database := fields["database"]
	if database == "" {
		return "", fmt.Errorf("dbdriver: sqlserver connection string missing database")
	}

	trustCert := strings.EqualFold(fields["trustservercertificate"], "true")
	encrypt := fields["encrypt"]
	if trustCert && !strings.EqualFold(encrypt, "false") {
		encrypt = "false"
	}

	dsn := url.URL{Scheme: "sqlserver"}
	if user := fields["user"]; user != "" {
		dsn.User = url.UserPassword(user, fields["password"])
	}
	host := server
	if port := fields["port"]; port != "" {
		host = server + ":" + port
	}
	dsn.Host = host

	query := url.Values{}
	query.Set("database", database)
	if encrypt != "" {
		query.Set("encrypt", encrypt)
	}
	if trustCert {
		query.Set("TrustServerCertificate", "true")
	}
	if appName := fields["appname"]; appName != "" {
		query.Set("app name", appName)
	}
	query.Set("connection timeout", fmt.Sprintf("%d", int(sqlServerConnectTimeout.Seconds())))
	dsn.RawQuery = query.Encode()

	return dsn.String(), nil
}
