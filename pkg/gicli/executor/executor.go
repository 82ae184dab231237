// Package executor runs a single job through the PREPARE -> AUTH_CHECK
// -> REQUEST -> MAYBE_REAUTH -> SINK -> DONE state machine of spec
// §4.8. Grounded on the teacher's StepExecution (status/exit-status/
// counts tracked per unit of work); JobRun here scopes the same shape
// to one job instead of one chunk step, with a single direct state
// transition per spec's redesigned 401 handling instead of the
// teacher's split pre-response/in-catch retry paths.
package executor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tigerroll/gicli/pkg/gicli/auth"
	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
	"github.com/tigerroll/gicli/pkg/gicli/httpclient"
	"github.com/tigerroll/gicli/pkg/gicli/logging"
	"github.com/tigerroll/gicli/pkg/gicli/session"
	"github.com/tigerroll/gicli/pkg/gicli/sink"
)

// Status is a job's terminal outcome.
type Status string

const (
	StatusDone   Status = "DONE"
	StatusFailed Status = "FAILED"
)

// JobRun is the record of one job invocation, spec §4.8 / §3's
// "Invocation Cache Entry" source material.
type JobRun struct {
	JobID     string
	Status    Status
	Reason    string
	Result    any // {authenticated,timestamp} or {data,headers,status,timestamp,request_id}
	StartedAt time.Time
	EndedAt   time.Time
}

// Substitutor is the narrow interface executor needs from
// substitute.Substitutor.
type Substitutor interface {
	Value(v any) any
	String(s string) string
}

// PayloadOverride carries the externally supplied --payload-file /
// --params-file bodies, spec §4.8 PREPARE: "overlay optional
// payload/params files ... that replace the corresponding field
// verbatim." Resolved per spec §9's Open Question: wholesale replace
// before substitution.
type PayloadOverride struct {
	Payload any
	Params  map[string]any
}

// Executor runs jobs against a single Group's origins.
type Executor struct {
	client        *httpclient.Client
	authenticator *auth.Authenticator
	sessions      *session.Store
	sub           Substitutor
	log           *logging.Logger

	mu         sync.Mutex
	runningJobs map[string]bool
}

// New constructs an Executor with explicit dependencies, matching the
// rest of gicli's constructor-injection style.
func New(client *httpclient.Client, authenticator *auth.Authenticator, sessions *session.Store, sub Substitutor, log *logging.Logger) *Executor {
	if log == nil {
		log = logging.Nop()
	}
	return &Executor{
		client:        client,
		authenticator: authenticator,
		sessions:      sessions,
		sub:           sub,
		log:           log,
		runningJobs:   make(map[string]bool),
	}
}

// Execute runs job within origin, with allOrigins available for
// session-name lookups that cross origin boundaries (spec §4.8
// AUTH_CHECK: "scanning the current origin first, then the full set of
// origins").
func (e *Executor) Execute(ctx context.Context, origin *config.Origin, job *config.Job, allOrigins []config.Origin, override *PayloadOverride) JobRun {
	run := JobRun{JobID: job.ID, StartedAt: time.Now()}
	key := origin.Name + "_" + job.ID

	if !e.enter(key) {
		run.Status = StatusFailed
		run.Reason = "job already running: " + key
		run.EndedAt = time.Now()
		return run
	}
	defer e.leave(key)

	prepared := e.prepare(job, override)

	if job.Type == config.JobTypeAuth {
		if err := e.authenticator.Authenticate(ctx, origin, prepared); err != nil {
			run.Status = StatusFailed
			run.Reason = err.Error()
			run.EndedAt = time.Now()
			return run
		}
		run.Status = StatusDone
		run.Result = map[string]any{"authenticated": true, "timestamp": time.Now()}
		run.EndedAt = time.Now()
		e.mirrorToSession(job.ID, run.Result)
		return run
	}

	if prepared.SessionName != "" {
		if authJob, authOrigin := findAuthJobForSession(origin, allOrigins, prepared.SessionName); authJob != nil {
			if err := e.authenticator.RefreshAuthentication(ctx, authOrigin, authJob); err != nil {
				run.Status = StatusFailed
				run.Reason = err.Error()
				run.EndedAt = time.Now()
				return run
			}
		}
	}

	resp, err := e.request(ctx, origin, prepared)
	if err != nil && isAuthExpired(err) {
		if authJob, authOrigin := findAuthJobForSession(origin, allOrigins, prepared.SessionName); authJob != nil {
			if refreshErr := e.authenticator.ForceRefresh(ctx, authOrigin, authJob); refreshErr == nil {
				resp, err = e.request(ctx, origin, prepared)
			}
		}
	}
	if err != nil {
		run.Status = StatusFailed
		run.Reason = err.Error()
		run.EndedAt = time.Now()
		return run
	}

	result := map[string]any{
		"data":       resp.Data,
		"headers":    resp.Headers,
		"status":     resp.Status,
		"timestamp":  time.Now(),
		"request_id": resp.RequestID,
	}
	e.log.Debugf("executor: job %s request %s completed with status %d", job.ID, resp.RequestID, resp.Status)

	if job.Output != nil && job.Output.Enabled {
		if err := e.dispatchSink(ctx, origin, prepared, resp); err != nil {
			e.log.Warnf("executor: sink failed for job %s, continuing: %v", job.ID, err)
		}
	}

	run.Status = StatusDone
	run.Result = result
	run.EndedAt = time.Now()
	e.mirrorToSession(job.ID, result)
	return run
}

// mirrorToSession publishes run into the Session Store under
// job_result_<id> with a 1-hour TTL, per spec §4.8 DONE. This happens
// unconditionally: DisableCache only withholds the Invocation Cache
// entry the Orchestrator publishes, not this session mirror.
func (e *Executor) mirrorToSession(jobID string, result any) {
	e.sessions.Set("job_result_"+jobID, result, time.Hour)
}

func (e *Executor) enter(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.runningJobs[key] {
		return false
	}
	e.runningJobs[key] = true
	return true
}

func (e *Executor) leave(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runningJobs, key)
}

// prepare deep-substitutes the job configuration and overlays any
// externally supplied payload/params, per spec §4.8 PREPARE.
func (e *Executor) prepare(job *config.Job, override *PayloadOverride) *config.Job {
	prepared := *job
	if override != nil {
		if override.Payload != nil {
			prepared.Payload = override.Payload
		}
		if override.Params != nil {
			prepared.Params = override.Params
		}
	}

	prepared.Headers = asStringAnyMap(e.sub.Value(prepared.Headers))
	prepared.Params = asStringAnyMap(e.sub.Value(prepared.Params))
	prepared.Payload = e.sub.Value(prepared.Payload)
	prepared.Path = e.sub.String(prepared.Path)

	if prepared.Output != nil && prepared.Output.Database != nil {
		db := *prepared.Output.Database
		db.ConnectionString = e.sub.String(db.ConnectionString)
		out := *prepared.Output
		out.Database = &db
		prepared.Output = &out
	}

	return &prepared
}

func (e *Executor) request(ctx context.Context, origin *config.Origin, job *config.Job) (*httpclient.Response, error) {
	url := origin.BaseURL + job.Path + buildQuery(job.Params)

	headers := make(map[string]string, len(job.Headers))
	for k, v := range job.Headers {
		headers[k] = fmt.Sprintf("%v", v)
	}

	if job.SessionName != "" {
		if token, ok := e.authenticator.GetToken(origin.Name); ok {
			scheme := "Bearer"
			if job.Auth != nil && job.Auth.Type != "" {
				scheme = job.Auth.Type
			}
			headers["Authorization"] = scheme + " " + token
		}
	}

	req := httpclient.Request{
		Method:  job.Method,
		URL:     url,
		Headers: headers,
		Body:    job.Payload,
		Timeout: jobTimeout(job),
	}
	if job.Retry != nil {
		req.Retries = job.Retry.MaxAttempts
		req.RetryDelay = time.Duration(job.Retry.DelayMS) * time.Millisecond
	}

	return e.client.Do(ctx, req)
}

func (e *Executor) dispatchSink(ctx context.Context, origin *config.Origin, job *config.Job, resp *httpclient.Response) error {
	result := sink.HTTPResult{Data: resp.Data, Headers: resp.Headers, Status: resp.Status}

	switch job.Output.Type {
	case "file":
		if job.Output.File == nil {
			return gicerr.New(gicerr.SinkFailure, "executor", "output.type=file but no file config present", nil, false, true)
		}
		return sink.WriteFile(result, *job.Output.File, job.ID)
	case "database":
		if job.Output.Database == nil {
			return gicerr.New(gicerr.SinkFailure, "executor", "output.type=database but no database config present", nil, false, true)
		}
		dctx := sink.DatabaseContext{
			JobID:            job.ID,
			OriginName:       origin.Name,
			OriginConnString: origin.ConnectionString,
			Timestamp:        time.Now(),
		}
		_, err := sink.WriteDatabase(ctx, result, *job.Output.Database, dctx, e.sub, e.log)
		return err
	default:
		return gicerr.Newf(gicerr.SinkFailure, "executor", "unknown output.type %q", job.Output.Type)
	}
}

// findAuthJobForSession locates the auth job publishing sessionName,
// scanning origin first and then the full origin set, per spec §4.8
// AUTH_CHECK.
func findAuthJobForSession(origin *config.Origin, allOrigins []config.Origin, sessionName string) (*config.Job, *config.Origin) {
	if job := findInOrigin(origin, sessionName); job != nil {
		return job, origin
	}
	for i := range allOrigins {
		if allOrigins[i].Name == origin.Name {
			continue
		}
		if job := findInOrigin(&allOrigins[i], sessionName); job != nil {
			return job, &allOrigins[i]
		}
	}
	return nil, nil
}

func findInOrigin(origin *config.Origin, sessionName string) *config.Job {
	for i := range origin.Jobs {
		j := &origin.Jobs[i]
		if j.Type == config.JobTypeAuth && j.SessionName == sessionName {
			return j
		}
	}
	return nil
}

// isAuthExpired reports whether err is the MAYBE_REAUTH trigger of
// spec §4.8: an HTTP result of status 401, or a transport error whose
// message contains "HTTP 401".
func isAuthExpired(err error) bool {
	if err == nil {
		return false
	}
	if httpclient.StatusFromHTTPError(err) == 401 {
		return true
	}
	return strings.Contains(err.Error(), "HTTP 401")
}

func buildQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		values.Set(k, fmt.Sprintf("%v", v))
	}
	return "?" + values.Encode()
}

func asStringAnyMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func jobTimeout(job *config.Job) time.Duration {
	if job.Timeout > 0 {
		return time.Duration(job.Timeout) * time.Millisecond
	}
	return 30 * time.Second
}
