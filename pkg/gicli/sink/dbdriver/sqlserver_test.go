package dbdriver

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareSQLServerConnStringCaseInsensitiveKeys(t *testing.T) {
	dsn, err := prepareSQLServerConnString("Server=db.internal;Port=1433;Database=widgets;User=sa;Password=s3cret;AppName=gicli")
	require.NoError(t, err)

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", parsed.Scheme)
	assert.Equal(t, "db.internal:1433", parsed.Host)
	assert.Equal(t, "sa", parsed.User.Username())
	password, ok := parsed.User.Password()
	require.True(t, ok)
	assert.Equal(t, "s3cret", password)
	assert.Equal(t, "widgets", parsed.Query().Get("database"))
	assert.Equal(t, "gicli", parsed.Query().Get("app name"))
	assert.Equal(t, "30", parsed.Query().Get("connection timeout"))
}

func TestPrepareSQLServerConnStringTrustCertForcesEncryptFalse(t *testing.T) {
	dsn, err := prepareSQLServerConnString("server=db;database=widgets;user=sa;password=x;trustServerCertificate=true")
	require.NoError(t, err)

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "false", parsed.Query().Get("encrypt"))
	assert.Equal(t, "true", parsed.Query().Get("TrustServerCertificate"))
}

func TestPrepareSQLServerConnStringExplicitEncryptSurvivesTrustCert(t *testing.T) {
	dsn, err := prepareSQLServerConnString("server=db;database=widgets;trustServerCertificate=true;encrypt=false")
	require.NoError(t, err)

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "false", parsed.Query().Get("encrypt"))
}

func TestPrepareSQLServerConnStringMissingServerErrors(t *testing.T) {
	_, err := prepareSQLServerConnString("database=widgets")
	assert.Error(t, err)
}

func TestPrepareSQLServerConnStringMissingDatabaseErrors(t *testing.T) {
	_, err := prepareSQLServerConnString("server=db")
	assert.Error(t, err)
}
