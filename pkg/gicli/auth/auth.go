// Package auth implements the Authenticator of spec §4.5: it runs a
// job's login request through the HTTP Client, extracts the bearer
// token and its expiry by dotted path, and stores it in the Session
// Store under the job's session_name. Grounded on the same request/
// response shape as httpclient's own teacher source
// (example/weather/step/reader/weather_reader.go), reusing the client
// rather than re-issuing raw net/http calls.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
	"github.com/tigerroll/gicli/pkg/gicli/httpclient"
	"github.com/tigerroll/gicli/pkg/gicli/logging"
	"github.com/tigerroll/gicli/pkg/gicli/pathutil"
	"github.com/tigerroll/gicli/pkg/gicli/session"
)

const defaultTokenTTL = 3600 * time.Second

// Substitutor is the subset of substitute.Substitutor the Authenticator
// needs, kept as an interface here to avoid an import cycle (substitute
// does not depend on auth, but keeping this narrow also makes auth
// trivially testable with a no-op stand-in).
type Substitutor interface {
	Value(v any) any
	String(s string) string
}

// Authenticator runs auth jobs and manages their tokens in the Session
// Store, per spec §4.5.
type Authenticator struct {
	client  *httpclient.Client
	store   *session.Store
	sub     Substitutor
	log     *logging.Logger
	current map[string]string // origin name -> current session_name
}

// New constructs an Authenticator. All dependencies are explicit,
// matching spec §9's replacement of the teacher's singleton session
// manager with constructor injection.
func New(client *httpclient.Client, store *session.Store, sub Substitutor, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Nop()
	}
	return &Authenticator{client: client, store: store, sub: sub, log: log, current: make(map[string]string)}
}

// sessionName returns job.SessionName, defaulting to
// SESSION_<ORIGIN>_TOKEN per spec §4.5 step 5.
func sessionName(origin *config.Origin, job *config.Job) string {
	if job.SessionName != "" {
		return job.SessionName
	}
	return fmt.Sprintf("SESSION_%s_TOKEN", origin.Name)
}

// Authenticate runs authJob's login request against origin and stores
// the resulting token.
func (a *Authenticator) Authenticate(ctx context.Context, origin *config.Origin, authJob *config.Job) error {
	headers := stringHeaders(a.sub.Value(authJob.Headers))
	payload := a.sub.Value(authJob.Payload)

	url := origin.BaseURL + a.sub.String(authJob.Path)

	req := httpclient.Request{
		Method:     authJob.Method,
		URL:        url,
		Headers:    headers,
		Body:       payload,
		Timeout:    jobTimeout(authJob),
		Retries:    retries(authJob),
		RetryDelay: retryDelay(authJob),
	}
	if req.Method == "" {
		req.Method = "POST"
	}

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return gicerr.New(gicerr.HTTPTransport, "auth", "login request for "+authJob.ID, err, true, false)
	}

	token, err := extractToken(resp.Data, authJob.TokenIdentifier)
	if err != nil {
		return err
	}

	ttl := extractExpiry(resp.Data, authJob.TokenExpirationIdentifier, authJob.TokenExpirationTime)

	name := sessionName(origin, authJob)
	a.store.Set(name, token, ttl)
	a.current[origin.Name] = name

	a.log.Infof("auth: origin %s authenticated, session %s expires in %s", origin.Name, name, ttl)
	return nil
}

// RefreshAuthentication re-authenticates only if the current session
// entry is absent or expired.
func (a *Authenticator) RefreshAuthentication(ctx context.Context, origin *config.Origin, authJob *config.Job) error {
	name := sessionName(origin, authJob)
	if a.store.Has(name) {
		return nil
	}
	return a.Authenticate(ctx, origin, authJob)
}

// ForceRefresh always re-authenticates, invalidating any existing
// token first -- used by the Job Executor's single-replay-on-401 path
// (spec §4.8 MAYBE_REAUTH), which must not observe a stale token.
func (a *Authenticator) ForceRefresh(ctx context.Context, origin *config.Origin, authJob *config.Job) error {
	a.store.Delete(sessionName(origin, authJob))
	return a.Authenticate(ctx, origin, authJob)
}

// GetToken returns the current token for originName, or ("", false) if
// none is active.
func (a *Authenticator) GetToken(originName string) (string, bool) {
	name, ok := a.current[originName]
	if !ok {
		return "", false
	}
	v, ok := a.store.Get(name)
	if !ok {
		return "", false
	}
	token, ok := pathutil.String(v)
	return token, ok
}

// Logout deletes the current session entry for originName.
func (a *Authenticator) Logout(originName string) {
	name, ok := a.current[originName]
	if !ok {
		return
	}
	a.store.Delete(name)
	delete(a.current, originName)
}

func extractToken(data any, identifier string) (string, error) {
	if identifier == "" {
		return "", gicerr.New(gicerr.AuthTokenExtractionFailed, "auth", "token_identifier is not configured", nil, false, false)
	}
	v, ok := pathutil.Get(data, identifier)
	if !ok {
		return "", gicerr.Newf(gicerr.AuthTokenExtractionFailed, "auth", "token_identifier %q did not resolve in the login response", identifier)
	}
	token, ok := pathutil.String(v)
	if !ok {
		return "", gicerr.Newf(gicerr.AuthTokenExtractionFailed, "auth", "token at %q is not a string", identifier)
	}
	return token, nil
}

func extractExpiry(data any, identifier string, staticFallback int) time.Duration {
	if identifier != "" {
		if v, ok := pathutil.Get(data, identifier); ok {
			if n, ok := pathutil.Number(v); ok {
				return time.Duration(n) * time.Second
			}
		}
	}
	if staticFallback > 0 {
		return time.Duration(staticFallback) * time.Second
	}
	return defaultTokenTTL
}

func stringHeaders(v any) map[string]string {
	m, _ := v.(map[string]any)
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := pathutil.String(val); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", val)
	}
	return out
}

func jobTimeout(job *config.Job) time.Duration {
	if job.Timeout > 0 {
		return time.Duration(job.Timeout) * time.Millisecond
	}
	return 30 * time.Second
}

func retries(job *config.Job) int {
	if job.Retry != nil {
		return job.Retry.MaxAttempts
	}
	return 0
}

func retryDelay(job *config.Job) time.Duration {
	if job.Retry != nil {
		return time.Duration(job.Retry.DelayMS) * time.Millisecond
	}
	return 0
}
