// Package config holds gicli's declarative document model (Group,
// Origin, Job) and the loader/validator that turns a YAML or JSON
// configuration file into it. The struct shapes are grounded on the
// teacher's pkg/batch/config/config.go — plain structs with yaml tags,
// decoded through gopkg.in/yaml.v3 and then patched by environment
// variables the same way the teacher's loadEnvVars patches DatabaseConfig.
package config

// JobType distinguishes an auth job from a request job.
type JobType string

const (
	JobTypeAuth    JobType = "auth"
	JobTypeRequest JobType = "request"
)

// JobMode labels a job as production or test. It is carried on the job
// but not consulted at run time: a database sink with no driver set
// uses the embedded SQLite driver in either mode.
type JobMode string

const (
	ModeProduction JobMode = "production"
	ModeTest       JobMode = "test"
)

// ResponseFormat selects how a response body is parsed downstream of
// the HTTP client's own content-type dispatch (§4.4); it mainly steers
// the file sink's format inference.
type ResponseFormat string

const (
	FormatJSON ResponseFormat = "json"
	FormatXML  ResponseFormat = "xml"
	FormatText ResponseFormat = "text"
)

// RetryPolicy is a job's HTTP retry configuration.
type RetryPolicy struct {
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	DelayMS     int `yaml:"delay" json:"delay"`
}

// AuthAttachment configures how a bearer/other token is attached to a
// request job's Authorization header.
type AuthAttachment struct {
	Type string `yaml:"type" json:"type"` // default "Bearer"
}

// FileOutput is the file-sink configuration block.
type FileOutput struct {
	Path      string `yaml:"path" json:"path"`
	Filename  string `yaml:"filename" json:"filename"`
	Format    string `yaml:"format" json:"format"` // json|xml|txt|auto
	Overwrite bool   `yaml:"overwrite" json:"overwrite"`
}

// DatabaseOutput is the database-sink configuration block.
type DatabaseOutput struct {
	Driver            string            `yaml:"driver" json:"driver"`
	Table             string            `yaml:"table" json:"table"`
	DataPath          string            `yaml:"data_path" json:"data_path"`
	Columns           map[string]string `yaml:"columns" json:"columns"`
	ClearBeforeInsert bool              `yaml:"clear_before_insert" json:"clear_before_insert"`
	ConnectionString  string            `yaml:"connection_string" json:"connection_string"`
}

// Output is a job's optional sink declaration.
type Output struct {
	Enabled  bool            `yaml:"enabled" json:"enabled"`
	Type     string          `yaml:"type" json:"type"` // file|database
	File     *FileOutput     `yaml:"file,omitempty" json:"file,omitempty"`
	Database *DatabaseOutput `yaml:"database,omitempty" json:"database,omitempty"`
}

// Job is a single declarative unit of work, spec §3.
type Job struct {
	ID          string  `yaml:"id" json:"id"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"` // supplemental, cosmetic only
	Type        JobType `yaml:"type" json:"type"`
	Mode        JobMode `yaml:"mode" json:"mode"`

	Method  string            `yaml:"method" json:"method"`
	Path    string            `yaml:"path" json:"path"`
	Headers map[string]any    `yaml:"headers,omitempty" json:"headers,omitempty"`
	Params  map[string]any    `yaml:"params,omitempty" json:"params,omitempty"`
	Payload any               `yaml:"payload,omitempty" json:"payload,omitempty"`
	Timeout int               `yaml:"timeout,omitempty" json:"timeout,omitempty"` // ms
	Retry   *RetryPolicy      `yaml:"retry_policy,omitempty" json:"retry_policy,omitempty"`

	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`

	// auth-only
	SessionName               string `yaml:"session_name,omitempty" json:"session_name,omitempty"`
	TokenIdentifier            string `yaml:"token_identifier,omitempty" json:"token_identifier,omitempty"`
	TokenExpirationIdentifier string `yaml:"token_expiration_identifier,omitempty" json:"token_expiration_identifier,omitempty"`
	TokenExpirationTime       int    `yaml:"token_expiration_time,omitempty" json:"token_expiration_time,omitempty"`

	// request-only
	Auth *AuthAttachment `yaml:"auth,omitempty" json:"auth,omitempty"`

	ResponseFormat ResponseFormat `yaml:"response_format,omitempty" json:"response_format,omitempty"`
	Output         *Output        `yaml:"output,omitempty" json:"output,omitempty"`

	// DisableCache, when true, still runs the job but never publishes
	// its result into the Invocation Cache -- for jobs whose response
	// is large and only its sink side effect matters.
	DisableCache bool `yaml:"disable_cache,omitempty" json:"disable_cache,omitempty"`
}

// Origin is a named remote service and its jobs, spec §3.
type Origin struct {
	Name             string   `yaml:"name" json:"name"`
	BaseURL          string   `yaml:"base_url" json:"base_url"`
	ConnectionString string   `yaml:"connection_string,omitempty" json:"connection_string,omitempty"`
	Tags             []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Jobs             []Job    `yaml:"job" json:"job"`
}

// Group is the top-level document, spec §6: "{ group, origins: [...] }".
type Group struct {
	Group   string   `yaml:"group" json:"group"`
	Origins []Origin `yaml:"origins" json:"origins"`
}

// FindJob looks up a job by id across every origin in the group,
// returning the job, its owning origin, and whether it was found.
func (g *Group) FindJob(id string) (*Job, *Origin, bool) {
	for oi := range g.Origins {
		origin := &g.Origins[oi]
		for ji := range origin.Jobs {
			if origin.Jobs[ji].ID == id {
				return &origin.Jobs[ji], origin, true
			}
		}
	}
	return nil, nil, false
}

// OriginByName finds an origin by name.
func (g *Group) OriginByName(name string) (*Origin, bool) {
	for oi := range g.Origins {
		if g.Origins[oi].Name == name {
			return &g.Origins[oi], true
		}
	}
	return nil, false
}
