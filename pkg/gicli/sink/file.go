// Package sink implements the two output variants spec §4.6 and §4.7
// describe: writing a job's response to a file, or projecting it into
// a database table. Grounded on the teacher's writer packages' general
// shape (a small config struct plus a Write method), adapted since the
// teacher's writers are chunk-oriented batch writers and gicli's sinks
// are single-response fire-and-forget.
package sink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

// HTTPResult is the minimal response shape both sink variants consume,
// matching the Job Executor's REQUEST output (spec §4.8).
type HTTPResult struct {
	Data    any
	Headers map[string][]string
	Status  int
}

// WriteFile implements the file sink variant, spec §4.6.
func WriteFile(result HTTPResult, cfg config.FileOutput, jobID string) error {
	filename := expandFilenamePlaceholders(cfg.Filename, jobID)
	format := resolveFormat(cfg.Format, headerValue(result.Headers, "Content-Type"))

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return gicerr.New(gicerr.SinkFailure, "sink", "creating output directory "+cfg.Path, err, false, true)
	}

	target := filepath.Join(cfg.Path, filename)
	if !cfg.Overwrite {
		if _, err := os.Stat(target); err == nil {
			return gicerr.Newf(gicerr.SinkFailure, "sink", "file already exists: %s", target)
		}
	}

	payload, err := serialize(result.Data, format)
	if err != nil {
		return gicerr.New(gicerr.SinkFailure, "sink", "serializing response for file sink", err, false, true)
	}

	return atomicWrite(target, payload)
}

func expandFilenamePlaceholders(filename, jobID string) string {
	ts := time.Now().Format("2006-01-02_15-04-05")
	filename = strings.ReplaceAll(filename, "$JOBID", jobID)
	filename = strings.ReplaceAll(filename, "$TS", ts)
	return filename
}

func resolveFormat(explicit, contentType string) string {
	if explicit != "" && explicit != "auto" {
		return explicit
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "application/json"):
		return "json"
	case strings.HasPrefix(ct, "application/xml"), strings.HasPrefix(ct, "text/xml"):
		return "xml"
	case strings.HasPrefix(ct, "text/"):
		return "txt"
	default:
		return "txt"
	}
}

func serialize(data any, format string) ([]byte, error) {
	if format == "json" {
		return json.MarshalIndent(data, "", "  ")
	}
	// xml/txt: write strings as-is; anything else falls back to pretty JSON.
	if s, ok := data.(string); ok {
		return []byte(s), nil
	}
	if b, ok := data.([]byte); ok {
		return b, nil
	}
	return json.MarshalIndent(data, "", "  ")
}

func atomicWrite(target string, payload []byte) error {
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return gicerr.New(gicerr.SinkFailure, "sink", "writing temp file for "+target, err, false, true)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return gicerr.New(gicerr.SinkFailure, "sink", "renaming temp file to "+target, err, false, true)
	}
	return nil
}

func headerValue(headers map[string][]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
