// Package orchestrator implements the top-level run loop of spec §4.9:
// resolve the target job's dependency closure, walk it job by job
// through the Executor, and surface a process exit code. Loading and
// validating the configuration is left to the caller, which passes an
// already-parsed Group. Grounded on the teacher's SimpleJobLauncher shape
// (resolve -> prepare -> execute -> record) but without a persisted
// JobRepository -- spec §6 states no persisted state is required for
// correctness, so the Invocation Cache here is a plain in-memory map
// scoped to one Run call.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/tigerroll/gicli/pkg/gicli/auth"
	"github.com/tigerroll/gicli/pkg/gicli/config"
	"github.com/tigerroll/gicli/pkg/gicli/depgraph"
	"github.com/tigerroll/gicli/pkg/gicli/executor"
	"github.com/tigerroll/gicli/pkg/gicli/gicerr"
	"github.com/tigerroll/gicli/pkg/gicli/httpclient"
	"github.com/tigerroll/gicli/pkg/gicli/logging"
	"github.com/tigerroll/gicli/pkg/gicli/session"
	"github.com/tigerroll/gicli/pkg/gicli/substitute"
)

// Result is the outcome of one orchestrator run.
type Result struct {
	TargetJobID string
	Runs        []executor.JobRun
	Err         error
}

// ExitCode returns 0 on success, 1 otherwise, per spec §6.
func (r Result) ExitCode() int {
	if r.Err != nil {
		return 1
	}
	for _, run := range r.Runs {
		if run.Status == executor.StatusFailed {
			return 1
		}
	}
	return 0
}

// Orchestrator wires the Dependency Resolver and Job Executor together
// around a single Group document.
type Orchestrator struct {
	group     *config.Group
	sessions  *session.Store
	log       *logging.Logger
	masterKey string

	cache invocationCache
}

// invocationCache is the single-run result cache spec §3 scopes to one
// orchestrator invocation: job id -> its DONE result (or absent if the
// job set disable_cache).
type invocationCache struct {
	entries map[string]any
}

func (c *invocationCache) get(jobID string) (any, bool) {
	if c.entries == nil {
		return nil, false
	}
	v, ok := c.entries[jobID]
	return v, ok
}

func (c *invocationCache) set(jobID string, v any) {
	if c.entries == nil {
		c.entries = make(map[string]any)
	}
	c.entries[jobID] = v
}

// New constructs an Orchestrator for group. masterKey is the
// ENV_ENCRYPTION_KEY used by the Substitutor's ENC: decryption step.
func New(group *config.Group, sessions *session.Store, masterKey string, log *logging.Logger) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{group: group, sessions: sessions, log: log, masterKey: masterKey}
}

// Run resolves targetJobID's dependency closure and executes it in
// order, short-circuiting on the first hard failure, per spec §4.9.
func (o *Orchestrator) Run(ctx context.Context, targetJobID string, override *executor.PayloadOverride) Result {
	if _, _, ok := o.group.FindJob(targetJobID); !ok {
		return Result{TargetJobID: targetJobID, Err: gicerr.Newf(gicerr.DependencyMissing, "orchestrator", "target job %q not found", targetJobID)}
	}

	nodes := jobNodes(o.group)
	order, err := depgraph.Resolve(nodes, targetJobID)
	if err != nil {
		return Result{TargetJobID: targetJobID, Err: err}
	}

	sub := substitute.New(o.sessions, o.masterKey, o.log, o.cache.get)
	client := httpclient.New()
	authenticator := auth.New(client, o.sessions, sub, o.log)
	exec := executor.New(client, authenticator, o.sessions, sub, o.log)

	var runs []executor.JobRun
	for i, jobID := range order {
		select {
		case <-ctx.Done():
			return Result{TargetJobID: targetJobID, Runs: runs, Err: ctx.Err()}
		default:
		}

		curJob, curOrigin, ok := o.group.FindJob(jobID)
		if !ok {
			return Result{TargetJobID: targetJobID, Runs: runs, Err: gicerr.Newf(gicerr.DependencyMissing, "orchestrator", "job %q vanished from the resolved order", jobID)}
		}

		o.log.Infof("orchestrator: running job %s (%d/%d)", jobID, i+1, len(order))

		var jobOverride *executor.PayloadOverride
		if jobID == targetJobID {
			jobOverride = override
		}

		run := exec.Execute(ctx, curOrigin, curJob, o.group.Origins, jobOverride)
		runs = append(runs, run)

		if run.Status == executor.StatusFailed {
			o.log.Errorf("orchestrator: job %s failed: %s", jobID, run.Reason)
			return Result{TargetJobID: targetJobID, Runs: runs, Err: fmt.Errorf("job %s failed: %s", jobID, run.Reason)}
		}

		if !curJob.DisableCache {
			o.cache.set(jobID, run.Result)
		}
	}

	return Result{TargetJobID: targetJobID, Runs: runs}
}

func jobNodes(g *config.Group) []depgraph.Node {
	var nodes []depgraph.Node
	for _, origin := range g.Origins {
		for _, job := range origin.Jobs {
			nodes = append(nodes, depgraph.Node{ID: job.ID, Dependencies: job.Dependencies})
		}
	}
	return nodes
}
