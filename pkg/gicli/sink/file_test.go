package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/gicli/pkg/gicli/config"
)

func TestWriteFileJSON(t *testing.T) {
	dir := t.TempDir()
	result := HTTPResult{
		Data:    map[string]any{"ok": true},
		Headers: map[string][]string{"Content-Type": {"application/json"}},
		Status:  200,
	}
	cfg := config.FileOutput{Path: dir, Filename: "$JOBID.json", Overwrite: false}

	err := WriteFile(result, cfg, "myjob")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "myjob.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ok": true`)
}

func TestWriteFileOverwriteGuard(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(target, []byte("existing"), 0o644))

	result := HTTPResult{Data: "new", Headers: map[string][]string{"Content-Type": {"text/plain"}}}
	cfg := config.FileOutput{Path: dir, Filename: "f.txt", Overwrite: false}

	err := WriteFile(result, cfg, "j")
	require.Error(t, err)
}

func TestWriteFileOverwriteAllowed(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(target, []byte("existing"), 0o644))

	result := HTTPResult{Data: "new", Headers: map[string][]string{"Content-Type": {"text/plain"}}}
	cfg := config.FileOutput{Path: dir, Filename: "f.txt", Overwrite: true}

	err := WriteFile(result, cfg, "j")
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestResolveFormatFromContentType(t *testing.T) {
	assert.Equal(t, "json", resolveFormat("", "application/json; charset=utf-8"))
	assert.Equal(t, "xml", resolveFormat("", "text/xml"))
	assert.Equal(t, "txt", resolveFormat("", "text/plain"))
	assert.Equal(t, "txt", resolveFormat("", "application/octet-stream"))
	assert.Equal(t, "json", resolveFormat("json", "text/plain"))
}
