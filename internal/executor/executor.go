// Package executor runs the prompt-on-repo workflow: clone, analyze, plan,
// edit, commit, describe and open a pull request, reporting each step as a
// progress event.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/cexll/codeagent/internal/costcontrol"
	"github.com/cexll/codeagent/internal/describer"
	"github.com/cexll/codeagent/internal/metrics"
	"github.com/cexll/codeagent/internal/planner"
	"github.com/cexll/codeagent/internal/progress"
	"github.com/cexll/codeagent/internal/snapshot"
	"github.com/cexll/codeagent/internal/taskstore"
	"github.com/cexll/codeagent/internal/vcs"
)

const commitPromptChars = 100

// Gateway is the version-control surface a run needs.
type Gateway interface {
	Clone(ctx context.Context, repoURL, localPath string) error
	CreateBranch(ctx context.Context, localPath, name string) error
	CommitAndPush(ctx context.Context, localPath, message, branch string) error
	CreatePullRequest(ctx context.Context, repoURL, branch, title, body string) (string, error)
}

// Planner decides which files a change request touches.
type Planner interface {
	Plan(ctx context.Context, prompt, report string) (planner.Result, error)
}

// Editor rewrites one file.
type Editor interface {
	Apply(ctx context.Context, root, relPath, prompt string, isNew bool) (string, error)
}

// Describer writes the pull request title and body.
type Describer interface {
	Describe(ctx context.Context, prompt string, plan planner.Plan) describer.Description
}

// Config wires an Executor.
type Config struct {
	VCS       Gateway
	Planner   Planner
	Editor    Editor
	Describer Describer

	// Store records run history; nil disables recording.
	Store taskstore.Store
	// Credentials reports a missing VCS credential; nil means it is configured.
	Credentials func() error
	// WorkDir is where run workspaces are created; empty means os.TempDir().
	WorkDir string
}

// Executor runs prompt-on-repo requests.
type Executor struct {
	vcs         Gateway
	planner     Planner
	editor      Editor
	describer   Describer
	store       taskstore.Store
	credentials func() error
	workDir     string
}

// New creates an executor.
func New(cfg Config) *Executor {
	return &Executor{
		vcs:         cfg.VCS,
		planner:     cfg.Planner,
		editor:      cfg.Editor,
		describer:   cfg.Describer,
		store:       cfg.Store,
		credentials: cfg.Credentials,
		workDir:     cfg.WorkDir,
	}
}

// Request is one change request against a repository.
type Request struct {
	RepoURL string
	Prompt  string
}

// PullRequestResult is the payload of the final "done" event.
type PullRequestResult struct {
	PRURL         string `json:"pr_url"`
	BranchName    string `json:"branch_name"`
	FilesModified int    `json:"files_modified"`
	Summary       string `json:"summary"`
}

// Result summarizes a finished run.
type Result struct {
	RunID  string
	Branch string
	// Events is the number of events emitted.
	Events int
	Files  []FileOutcome
	PR     *PullRequestResult
	// Err is nil exactly when a "done" event was emitted.
	Err error
}

// Execute runs req to completion, emitting events to sink in order. Every
// run that created a workspace removes it and emits exactly one cleanup
// event (or warning) before returning, even after a failure, a panic or
// cancellation of ctx.
func (e *Executor) Execute(ctx context.Context, req Request, sink progress.Sink) Result {
	if sink == nil {
		sink = progress.Discard
	}
	r := &run{
		ex:     e,
		req:    req,
		sink:   sink,
		id:     uuid.NewString(),
		branch: vcs.NewBranchName(),
	}

	log := clog.FromContext(ctx).With("run", r.id, "repo", vcs.StripCredentials(req.RepoURL), "branch", r.branch)
	ctx = clog.WithLogger(ctx, log)
	ctx = costcontrol.WithRun(ctx, r.id)

	start := time.Now()
	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	r.record(ctx)
	pr, err := r.execute(ctx)
	r.finish(context.WithoutCancel(ctx), pr, err)

	outcome := "completed"
	if err != nil {
		outcome = "failed"
		log.Warnf("run failed: %v", err)
	} else {
		log.Infof("run completed: %s", pr.PRURL)
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	return Result{
		RunID:  r.id,
		Branch: r.branch,
		Events: r.events,
		Files:  r.files,
		PR:     pr,
		Err:    err,
	}
}

// run holds the state of one Execute call.
type run struct {
	ex     *Executor
	req    Request
	sink   progress.Sink
	id     string
	branch string
	events int
	files  []FileOutcome
}

func (r *run) execute(ctx context.Context) (pr *PullRequestResult, err error) {
	r.emit(ctx, progress.KindStart, "Initializing AI coding agent...")

	if r.ex.credentials != nil {
		if err := r.ex.credentials(); err != nil {
			return nil, r.fail(ctx, StageInit, err)
		}
	}

	workspace, err := os.MkdirTemp(r.ex.workDir, "codeagent-")
	if err != nil {
		return nil, r.fail(ctx, StageInit, fmt.Errorf("creating workspace: %w", err))
	}
	defer r.cleanup(context.WithoutCancel(ctx), workspace)
	defer func() {
		if p := recover(); p != nil {
			pe := &panicError{value: p}
			clog.FromContext(ctx).Errorf("recovered panic: %v", p)
			metrics.StageFailures.WithLabelValues("panic").Inc()
			r.emit(ctx, progress.KindError, pe.Error())
			pr, err = nil, pe
		}
	}()

	r.emit(ctx, progress.KindSetup, "Created temporary workspace: "+r.branch)
	repoPath := filepath.Join(workspace, "repo")

	// Clone
	r.emit(ctx, progress.KindClone, "Cloning repository...")
	if err := r.ex.vcs.Clone(ctx, r.req.RepoURL, repoPath); err != nil {
		return nil, r.fail(ctx, StageClone, err)
	}
	r.emit(ctx, progress.KindClone, "Repository cloned successfully.")

	// Analyze
	r.emit(ctx, progress.KindAnalyze, "Analyzing repository structure...")
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, StageAnalyze, err)
	}
	report, err := snapshot.Analyze(repoPath)
	if err != nil {
		return nil, r.fail(ctx, StageAnalyze, err)
	}
	r.emit(ctx, progress.KindAnalyze, "Repository analysis complete.")

	// Plan
	r.emit(ctx, progress.KindPlan, "Planning code changes with AI...")
	planned, err := r.ex.planner.Plan(ctx, r.req.Prompt, report)
	if err != nil {
		return nil, r.fail(ctx, StagePlan, err)
	}
	metrics.PlanTiers.WithLabelValues(string(planned.Tier)).Inc()
	if planned.Cause != nil {
		r.emit(ctx, progress.KindWarning, fmt.Sprintf("Could not use AI plan, using %s fallback: %v", planned.Tier, planned.Cause))
	}
	plan := planned.Plan
	r.emit(ctx, progress.KindPlan, "Planning complete: "+plan.Summary())

	// Branch
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, StageBranch, err)
	}
	if err := r.ex.vcs.CreateBranch(ctx, repoPath, r.branch); err != nil {
		return nil, r.fail(ctx, StageBranch, err)
	}
	r.emit(ctx, progress.KindBranch, "Created new branch: "+r.branch)

	// File loops
	for _, step := range []struct {
		stage Stage
		fold  func(context.Context, string, []string) ([]FileOutcome, error)
		paths []string
	}{
		{StageEdit, r.editFiles, plan.Edit},
		{StageCreate, r.createFiles, plan.Create},
		{StageDelete, r.deleteFiles, plan.Delete},
	} {
		outcomes, err := step.fold(ctx, repoPath, step.paths)
		r.files = append(r.files, outcomes...)
		if err != nil {
			return nil, r.fail(ctx, step.stage, err)
		}
	}

	modified := countModified(r.files)
	if modified == 0 {
		r.emit(ctx, progress.KindWarning, "No files were modified. Check if the repository structure matches the planned changes.")
	}

	// Commit
	r.emit(ctx, progress.KindCommit, "Committing and pushing changes...")
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, StageCommit, err)
	}
	if err := r.ex.vcs.CommitAndPush(ctx, repoPath, CommitMessage(r.req.Prompt), r.branch); err != nil {
		return nil, r.fail(ctx, StageCommit, err)
	}
	r.emit(ctx, progress.KindCommit, "Changes committed and pushed successfully.")

	// Describe
	r.emit(ctx, progress.KindPR, "Generating pull request description...")
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, StageDescribe, err)
	}
	desc := r.ex.describer.Describe(ctx, r.req.Prompt, plan)
	if desc.Cause != nil {
		r.emit(ctx, progress.KindWarning, fmt.Sprintf("Using fallback PR description: %v", desc.Cause))
	} else {
		r.emit(ctx, progress.KindPR, "PR description generated.")
	}

	// Open PR
	r.emit(ctx, progress.KindPR, "Creating pull request...")
	url, err := r.ex.vcs.CreatePullRequest(ctx, r.req.RepoURL, r.branch, desc.Title, desc.Body)
	if err != nil {
		return nil, r.fail(ctx, StageOpenPR, err)
	}

	pr = &PullRequestResult{
		PRURL:         url,
		BranchName:    r.branch,
		FilesModified: modified,
		Summary:       fmt.Sprintf("Successfully created pull request with %d modified files.", modified),
	}
	r.send(ctx, progress.Event{Kind: progress.KindDone, Payload: pr, Time: time.Now()})
	return pr, nil
}

// CommitMessage is "AI Agent: " followed by the first 100 characters of prompt.
func CommitMessage(prompt string) string {
	return "AI Agent: " + describer.Truncate(prompt, commitPromptChars)
}

func (r *run) emit(ctx context.Context, kind progress.Kind, message string) {
	r.send(ctx, progress.New(kind, message))
}

func (r *run) send(ctx context.Context, ev progress.Event) {
	r.sink.Emit(ev)
	r.events++
	r.log(ctx, ev)
}

// fail emits the single error event of a run and returns the stage error.
func (r *run) fail(ctx context.Context, stage Stage, err error) error {
	se := &StageError{Stage: stage, Err: err}
	metrics.StageFailures.WithLabelValues(string(stage)).Inc()
	r.emit(ctx, progress.KindError, se.Error())
	return se
}

func (r *run) cleanup(ctx context.Context, workspace string) {
	if err := os.RemoveAll(workspace); err != nil {
		r.emit(ctx, progress.KindWarning, fmt.Sprintf("Failed to cleanup temporary files: %v", err))
		return
	}
	r.emit(ctx, progress.KindCleanup, "Temporary files cleaned up.")
}

func (r *run) record(ctx context.Context) {
	if r.ex.store == nil {
		return
	}
	err := r.ex.store.Create(ctx, &taskstore.Run{
		ID:      r.id,
		RepoURL: vcs.StripCredentials(r.req.RepoURL),
		Prompt:  r.req.Prompt,
		Branch:  r.branch,
		Status:  taskstore.StatusRunning,
	})
	if err != nil {
		clog.FromContext(ctx).Warnf("recording run: %v", err)
	}
}

// log appends an event to the run history.
func (r *run) log(ctx context.Context, ev progress.Event) {
	if r.ex.store == nil {
		return
	}
	if err := r.ex.store.AddLog(context.WithoutCancel(ctx), r.id, string(ev.Kind), ev.Data()); err != nil {
		clog.FromContext(ctx).Debugf("recording event: %v", err)
	}
}

func (r *run) finish(ctx context.Context, pr *PullRequestResult, runErr error) {
	if r.ex.store == nil {
		return
	}
	rec := &taskstore.Run{
		ID:            r.id,
		Branch:        r.branch,
		Status:        taskstore.StatusCompleted,
		FilesModified: countModified(r.files),
	}
	if pr != nil {
		rec.PRURL = pr.PRURL
	}
	if runErr != nil {
		rec.Status = taskstore.StatusFailed
		rec.Error = runErr.Error()
	}
	if err := r.ex.store.Update(ctx, rec); err != nil {
		clog.FromContext(ctx).Warnf("recording run result: %v", err)
	}
}
