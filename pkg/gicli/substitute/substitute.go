// Package substitute implements the placeholder expansion grammar of
// spec §4.2 and §6: $ENV_*, $SESSION_*, {{dotted.path[n]}} against the
// invocation cache, $DATE, and a leading ENC: decrypt step. It is
// grounded on pathutil for path navigation and crypto for the ENC:
// scheme, composing them the way the teacher's config loader composes
// env-var patching with struct decoding -- one deterministic pass over
// whatever shape the data arrives in.
package substitute

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/tigerroll/gicli/pkg/gicli/crypto"
	"github.com/tigerroll/gicli/pkg/gicli/logging"
	"github.com/tigerroll/gicli/pkg/gicli/pathutil"
	"github.com/tigerroll/gicli/pkg/gicli/session"
)

var (
	envPattern     = regexp.MustCompile(`\$ENV_[A-Z_][A-Z0-9_]*`)
	sessionPattern = regexp.MustCompile(`\$SESSION_[A-Z_][A-Z0-9_]*`)
	pathPattern    = regexp.MustCompile(`\{\{[^}]+\}\}`)
	datePattern    = regexp.MustCompile(`\$DATE`)
)

// Substitutor applies gicli's placeholder grammar to arbitrary
// JSON-shaped values, against the process environment, a Session
// Store, and an invocation cache of prior job results.
type Substitutor struct {
	sessions      *session.Store
	masterKey     string
	log           *logging.Logger
	invocationGet func(jobID string) (any, bool)
}

// New constructs a Substitutor. invocationGet resolves a job id to its
// cached result (the "data" field of which {{path}} placeholders
// navigate into); pass nil when no invocation cache is in scope yet
// (e.g. while substituting an auth job's own request).
func New(sessions *session.Store, masterKey string, log *logging.Logger, invocationGet func(jobID string) (any, bool)) *Substitutor {
	if log == nil {
		log = logging.Nop()
	}
	return &Substitutor{sessions: sessions, masterKey: masterKey, log: log, invocationGet: invocationGet}
}

// Value recursively substitutes every string found in v: maps and
// slices are walked, and non-string scalars pass through unchanged.
func (s *Substitutor) Value(v any) any {
	switch t := v.(type) {
	case string:
		return s.String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = s.Value(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = s.Value(val)
		}
		return out
	default:
		return v
	}
}

// String substitutes a single string value, in the order spec §4.2
// fixes: decrypt -> $ENV_ -> $SESSION_ -> {{path}} -> $DATE.
func (s *Substitutor) String(str string) string {
	str = s.decrypt(str)
	str = s.expandEnv(str)
	str = s.expandSession(str)
	str = s.expandPaths(str)
	str = s.expandDate(str)
	return str
}

func (s *Substitutor) decrypt(str string) string {
	if !crypto.IsEncrypted(str) {
		return str
	}
	plain, err := crypto.Decrypt(s.masterKey, str)
	if err != nil {
		s.log.Warnf("substitute: failed to decrypt ENC: value: %v", err)
		return str
	}
	return plain
}

func (s *Substitutor) expandEnv(str string) string {
	return envPattern.ReplaceAllStringFunc(str, func(match string) string {
		name := match[1:] // drop leading '$', keep the ENV_ prefix as part of the name
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		s.log.Warnf("substitute: environment variable %s is not set", name)
		return match
	})
}

func (s *Substitutor) expandSession(str string) string {
	return sessionPattern.ReplaceAllStringFunc(str, func(match string) string {
		name := match[1:] // drop leading '$'
		if s.sessions == nil {
			return match
		}
		if v, ok := s.sessions.Get(name); ok {
			if sv, ok := pathutil.String(v); ok {
				return sv
			}
			return fmt.Sprintf("%v", v)
		}
		s.log.Warnf("substitute: session key %s is not set", name)
		return match
	})
}

func (s *Substitutor) expandPaths(str string) string {
	return pathPattern.ReplaceAllStringFunc(str, func(match string) string {
		path := match[2 : len(match)-2] // strip {{ }}
		jobID, rest := splitJobPath(path)
		if jobID == "" || s.invocationGet == nil {
			s.log.Warnf("substitute: %s", pathutil.GetPathMissingError("", path))
			return match
		}
		root, ok := s.invocationGet(jobID)
		if !ok {
			s.log.Warnf("substitute: %s", pathutil.GetPathMissingError(jobID, path))
			return match
		}
		data, ok := pathutil.Get(root, "data")
		if ok && rest != "" {
			data, ok = pathutil.Get(data, rest)
		} else if rest == "" {
			// {{jobId}} alone refers to the whole result, not its data field.
			data = root
			ok = true
		}
		if !ok {
			s.log.Warnf("substitute: %s", pathutil.GetPathMissingError(jobID, path))
			return match
		}
		if sv, ok := pathutil.String(data); ok {
			return sv
		}
		return fmt.Sprintf("%v", data)
	})
}

func (s *Substitutor) expandDate(str string) string {
	return datePattern.ReplaceAllString(str, time.Now().Format("2006-01-02"))
}

// splitJobPath splits "jobId.field.sub[i]" into ("jobId", "field.sub[i]").
func splitJobPath(path string) (jobID, rest string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
		if path[i] == '[' {
			return path[:i], path[i:]
		}
	}
	return path, ""
}
