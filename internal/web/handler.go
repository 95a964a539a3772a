// Package web exposes the prompt-on-repo workflow and run history over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
	"github.com/gorilla/mux"

	"github.com/cexll/codeagent/internal/auth"
	"github.com/cexll/codeagent/internal/concurrency"
	"github.com/cexll/codeagent/internal/executor"
	"github.com/cexll/codeagent/internal/metrics"
	"github.com/cexll/codeagent/internal/progress"
	"github.com/cexll/codeagent/internal/taskstore"
)

// Prompt length bounds, in characters.
const (
	MinPromptLength = 10
	MaxPromptLength = 2000
)

// Runner executes a change request.
type Runner interface {
	Execute(ctx context.Context, req executor.Request, sink progress.Sink) executor.Result
}

// Options configures a Handler.
type Options struct {
	Runner  Runner
	Limiter *concurrency.Manager
	Store   taskstore.Store
	// Auth, when set, mounts /auth. RequireAuth additionally guards the
	// trigger and run history endpoints.
	Auth        *auth.Service
	RequireAuth bool
}

// Handler serves the HTTP API.
type Handler struct {
	runner      Runner
	limiter     *concurrency.Manager
	store       taskstore.Store
	auth        *auth.Service
	requireAuth bool
}

// NewHandler creates a handler.
func NewHandler(opts Options) *Handler {
	limiter := opts.Limiter
	if limiter == nil {
		limiter = concurrency.NewManager(1)
	}
	return &Handler{
		runner:      opts.Runner,
		limiter:     limiter,
		store:       opts.Store,
		auth:        opts.Auth,
		requireAuth: opts.RequireAuth && opts.Auth != nil,
	}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	if h.auth != nil {
		h.auth.RegisterRoutes(r)
	}
	r.Handle("/code/prompt_on_repo", h.guard(h.handlePromptOnRepo)).Methods(http.MethodPost)
	if h.store != nil {
		r.Handle("/runs", h.guard(h.handleRunList)).Methods(http.MethodGet)
		r.Handle("/runs/{id}", h.guard(h.handleRunDetail)).Methods(http.MethodGet)
	}
}

func (h *Handler) guard(fn http.HandlerFunc) http.Handler {
	if h.requireAuth {
		return h.auth.Require(fn)
	}
	return fn
}

// PromptRequest is the body of POST /code/prompt_on_repo.
type PromptRequest struct {
	RepoURL string `json:"repoUrl"`
	Prompt  string `json:"prompt"`
}

// Validate checks the request the way it is checked before any streaming starts.
func (p PromptRequest) Validate() error {
	u, err := url.Parse(strings.TrimSpace(p.RepoURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("repoUrl must be an absolute http(s) URL")
	}
	n := utf8.RuneCountInString(p.Prompt)
	if n < MinPromptLength {
		return errors.New("prompt must be at least 10 characters")
	}
	if n > MaxPromptLength {
		return errors.New("prompt must be at most 2000 characters")
	}
	return nil
}

// handlePromptOnRepo validates the request, then streams the run as
// Server-Sent Events until it finishes or the client goes away.
func (h *Handler) handlePromptOnRepo(w http.ResponseWriter, r *http.Request) {
	log := clog.FromContext(r.Context())

	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	req.RepoURL = strings.TrimSpace(req.RepoURL)

	release, err := h.limiter.Acquire(req.RepoURL)
	switch {
	case errors.Is(err, concurrency.ErrCapacity):
		metrics.RunsRejected.WithLabelValues("capacity").Inc()
		writeDetail(w, http.StatusTooManyRequests, err.Error())
		return
	case errors.Is(err, concurrency.ErrRepoBusy):
		metrics.RunsRejected.WithLabelValues("repo_busy").Inc()
		writeDetail(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer release()

	stream, err := progress.NewStream(w)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	res := h.runner.Execute(r.Context(), executor.Request{RepoURL: req.RepoURL, Prompt: req.Prompt}, stream)
	if err := stream.Err(); err != nil {
		log.Infof("client stream closed early: %v", err)
	}
	log.With("run", res.RunID).Debugf("streamed %d events", res.Events)
}

func (h *Handler) handleRunList(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.List(r.Context())
	if err != nil {
		clog.FromContext(r.Context()).Errorf("listing runs: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, err := h.store.Get(r.Context(), id)
	if errors.Is(err, taskstore.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		clog.FromContext(r.Context()).Errorf("reading run %s: %v", id, err)
		writeDetail(w, http.StatusInternalServerError, "could not read run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
