package genconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/gicli/pkg/gicli/config"
)

const sampleSwagger = `{
  "info": {"title": "Pet Store"},
  "servers": [{"url": "https://api.petstore.example"}],
  "paths": {
    "/pets": {
      "get": {"operationId": "listPets", "summary": "List pets"}
    }
  }
}`

func TestGenerateWritesGroupWithOneJobPerOperation(t *testing.T) {
	dir := t.TempDir()
	swaggerPath := filepath.Join(dir, "swagger.json")
	outputPath := filepath.Join(dir, "out.yaml")
	require.NoError(t, os.WriteFile(swaggerPath, []byte(sampleSwagger), 0o644))

	require.NoError(t, Generate(swaggerPath, outputPath))

	g, err := config.Load(outputPath)
	require.NoError(t, err)
	require.Len(t, g.Origins, 1)
	assert.Equal(t, "https://api.petstore.example", g.Origins[0].BaseURL)
	require.Len(t, g.Origins[0].Jobs, 1)
	assert.Equal(t, "listPets", g.Origins[0].Jobs[0].ID)
}
