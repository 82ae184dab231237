// Package genconfig implements the Swagger-to-configuration generator
// spec §1 names as an explicitly out-of-scope thin collaborator: it is
// "well understood" and contributes no systems-level difficulty, so
// this is a minimal, not exhaustive, translation from an OpenAPI/
// Swagger document's paths into a skeleton gicli Group -- one origin
// per document (its base URL taken from the first server, else from
// host and basePath), one request job per operation, left for the operator to
// fill in session_name, output, and retry policy by hand.
package genconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

type swaggerDoc struct {
	Info struct {
		Title string `json:"title"`
	} `json:"info"`
	Servers []struct {
		URL string `json:"url"`
	} `json:"servers"`
	Host     string                            `json:"host"`
	BasePath string                            `json:"basePath"`
	Paths    map[string]map[string]swaggerOp `json:"paths"`
}

type swaggerOp struct {
	OperationID string `json:"operationId"`
	Summary     string `json:"summary"`
}

// Generate reads an OpenAPI/Swagger JSON document at swaggerPath and
// writes a skeleton gicli group configuration to outputPath.
func Generate(swaggerPath, outputPath string) error {
	raw, err := os.ReadFile(swaggerPath)
	if err != nil {
		return gicerr.New(gicerr.ConfigurationInvalid, "genconfig", "reading swagger document", err, false, false)
	}

	var doc swaggerDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return gicerr.New(gicerr.ConfigurationInvalid, "genconfig", "parsing swagger document", err, false, false)
	}

	baseURL := resolveBaseURL(doc)
	originName := slugify(doc.Info.Title)
	if originName == "" {
		originName = "origin"
	}

	origin := config.Origin{Name: originName, BaseURL: baseURL}
	for path, methods := range doc.Paths {
		for method, op := range methods {
			id := op.OperationID
			if id == "" {
				id = slugify(method + "_" + path)
			}
			origin.Jobs = append(origin.Jobs, config.Job{
				ID:          id,
				Description: op.Summary,
				Type:        config.JobTypeRequest,
				Method:      strings.ToUpper(method),
				Path:        path,
			})
		}
	}

	group := config.Group{Group: originName, Origins: []config.Origin{origin}}

	out, err := yaml.Marshal(group)
	if err != nil {
		return gicerr.New(gicerr.ConfigurationInvalid, "genconfig", "encoding generated group", err, false, false)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return gicerr.New(gicerr.ConfigurationInvalid, "genconfig", "writing generated config to "+outputPath, err, false, false)
	}
	return nil
}

func resolveBaseURL(doc swaggerDoc) string {
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		return doc.Servers[0].URL
	}
	if doc.Host != "" {
		return fmt.Sprintf("https://%s%s", doc.Host, doc.BasePath)
	}
	return ""
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
