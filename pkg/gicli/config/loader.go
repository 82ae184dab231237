package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
)

// Load reads a single group document from path, dispatching on file
// extension the way the teacher's BytesConfigLoader dispatches on the
// embedded byte slice's declared shape -- here the discriminator is the
// suffix rather than a wrapper type, since gicli's config files arrive
// from disk, not go:embed.
func Load(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gicerr.New(gicerr.ConfigurationInvalid, "config", "reading config file "+path, err, false, false)
	}
	return Parse(data, path)
}

// Parse decodes data as YAML or JSON depending on hint's extension
// (".json" selects JSON; anything else, including ".yaml"/".yml"/no
// extension, selects YAML).
func Parse(data []byte, hint string) (*Group, error) {
	var g Group
	var err error
	if strings.EqualFold(filepath.Ext(hint), ".json") {
		err = json.Unmarshal(data, &g)
	} else {
		err = yaml.Unmarshal(data, &g)
	}
	if err != nil {
		return nil, gicerr.New(gicerr.ConfigurationInvalid, "config", "parsing config document", err, false, false)
	}
	return &g, nil
}

// LoadDir loads every *.yaml/*.yml/*.json file directly under dir and
// merges their origins into a single Group. Mirrors the CLI's -d
// (config root) discovery mode described in spec §6.
func LoadDir(dir string) (*Group, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, gicerr.New(gicerr.ConfigurationInvalid, "config", "reading config directory "+dir, err, false, false)
	}
	merged := &Group{}
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		g, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if merged.Group == "" {
			merged.Group = g.Group
		}
		merged.Origins = append(merged.Origins, g.Origins...)
		found = true
	}
	if !found {
		return nil, gicerr.Newf(gicerr.ConfigurationInvalid, "config", "no configuration files found under %s", dir)
	}
	return merged, nil
}

// Validate checks the structural invariants spec §3 requires: unique
// job ids per origin, dependencies referencing real jobs in the same
// origin, required fields present. It does not check the dependency
// graph for cycles -- that is the Dependency Resolver's job, since a
// cycle is only meaningful relative to a requested target.
func Validate(g *Group) error {
	if g.Group == "" {
		return gicerr.New(gicerr.ConfigurationInvalid, "config", "group name is required", nil, false, false)
	}
	if len(g.Origins) == 0 {
		return gicerr.New(gicerr.ConfigurationInvalid, "config", "at least one origin is required", nil, false, false)
	}
	for _, origin := range g.Origins {
		if origin.Name == "" {
			return gicerr.New(gicerr.ConfigurationInvalid, "config", "origin missing name", nil, false, false)
		}
		if origin.BaseURL == "" {
			return gicerr.Newf(gicerr.ConfigurationInvalid, "config", "origin %q missing base_url", origin.Name)
		}
		seen := make(map[string]bool, len(origin.Jobs))
		for _, job := range origin.Jobs {
			if job.ID == "" {
				return gicerr.Newf(gicerr.ConfigurationInvalid, "config", "origin %q has a job with no id", origin.Name)
			}
			if seen[job.ID] {
				return gicerr.Newf(gicerr.ConfigurationInvalid, "config", "origin %q has duplicate job id %q", origin.Name, job.ID)
			}
			seen[job.ID] = true
			if job.Type != JobTypeAuth && job.Type != JobTypeRequest {
				return gicerr.Newf(gicerr.ConfigurationInvalid, "config", "job %q has invalid type %q", job.ID, job.Type)
			}
		}
		var dangling []string
		for _, job := range origin.Jobs {
			for _, dep := range job.Dependencies {
				if !seen[dep] {
					dangling = append(dangling, fmt.Sprintf("%s->%s", job.ID, dep))
				}
			}
		}
		if len(dangling) > 0 {
			return gicerr.Newf(gicerr.DependencyMissing, "config", "origin %q has dangling dependency references: %s", origin.Name, strings.Join(dangling, ", "))
		}
	}
	return nil
}

// Import validates srcPath and copies it into sysConfDir/gicli/<name>,
// the "-i" CLI behavior from spec §6. It is deliberately thin: the
// interesting invariant checking lives in Validate.
func Import(srcPath, sysConfDir string) (string, error) {
	g, err := Load(srcPath)
	if err != nil {
		return "", err
	}
	if err := Validate(g); err != nil {
		return "", err
	}
	destDir := filepath.Join(sysConfDir, "gicli")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", gicerr.New(gicerr.ConfigurationInvalid, "config", "creating system config directory", err, false, false)
	}
	dest := filepath.Join(destDir, filepath.Base(srcPath))
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", gicerr.New(gicerr.ConfigurationInvalid, "config", "re-reading validated config", err, false, false)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", gicerr.New(gicerr.ConfigurationInvalid, "config", "copying config to system directory", err, false, false)
	}
	return dest, nil
}
