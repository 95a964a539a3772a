package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexll/codeagent/internal/auth"
	"github.com/cexll/codeagent/internal/concurrency"
	"github.com/cexll/codeagent/internal/executor"
	"github.com/cexll/codeagent/internal/progress"
	"github.com/cexll/codeagent/internal/taskstore"
)

const validBody = `{"repoUrl":"https://github.com/acme/widgets","prompt":"Add a health check endpoint"}`

type fakeRunner struct {
	calls []executor.Request
}

func (f *fakeRunner) Execute(_ context.Context, req executor.Request, sink progress.Sink) executor.Result {
	f.calls = append(f.calls, req)
	sink.Emit(progress.New(progress.KindStart, "Initializing AI coding agent..."))
	sink.Emit(progress.New(progress.KindWarning, "line one\nline two"))
	pr := &executor.PullRequestResult{PRURL: "https://github.com/acme/widgets/pull/1", BranchName: "ai-agent-0badc0de", FilesModified: 1, Summary: "ok"}
	sink.Emit(progress.Event{Kind: progress.KindDone, Payload: pr, Time: time.Now()})
	return executor.Result{RunID: "run-1", Events: 3, PR: pr}
}

func newTestRouter(t *testing.T, opts Options) *mux.Router {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(opts).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/code/prompt_on_repo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPromptOnRepo_Streams(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, Options{Runner: runner, Limiter: concurrency.NewManager(2)})

	rec := post(r, validBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	want := "event: start\ndata: Initializing AI coding agent...\n\n" +
		"event: warning\ndata: line one\ndata: line two\n\n" +
		"event: done\ndata: {\"pr_url\":\"https://github.com/acme/widgets/pull/1\",\"branch_name\":\"ai-agent-0badc0de\",\"files_modified\":1,\"summary\":\"ok\"}\n\n"
	assert.Equal(t, want, rec.Body.String())

	require.Len(t, runner.calls, 1)
	assert.Equal(t, executor.Request{RepoURL: "https://github.com/acme/widgets", Prompt: "Add a health check endpoint"}, runner.calls[0])
}

func TestPromptOnRepo_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "malformed", body: `{`, detail: "invalid request body"},
		{name: "relative url", body: `{"repoUrl":"acme/widgets","prompt":"Add a health check endpoint"}`, detail: "repoUrl must be an absolute http(s) URL"},
		{name: "ssh url", body: `{"repoUrl":"ssh://git@github.com/acme/widgets","prompt":"Add a health check endpoint"}`, detail: "repoUrl must be an absolute http(s) URL"},
		{name: "short prompt", body: `{"repoUrl":"https://github.com/acme/widgets","prompt":"too short"}`, detail: "prompt must be at least 10 characters"},
		{name: "long prompt", body: `{"repoUrl":"https://github.com/acme/widgets","prompt":"` + strings.Repeat("x", 2001) + `"}`, detail: "prompt must be at most 2000 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			r := newTestRouter(t, Options{Runner: runner})

			rec := post(r, tt.body)

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.detail, body["detail"])
			assert.Empty(t, runner.calls)
		})
	}
}

func TestPromptRequest_ValidateBounds(t *testing.T) {
	ok := PromptRequest{RepoURL: "https://github.com/acme/widgets", Prompt: strings.Repeat("é", MinPromptLength)}
	assert.NoError(t, ok.Validate())

	ok.Prompt = strings.Repeat("x", MaxPromptLength)
	assert.NoError(t, ok.Validate())
}

func TestPromptOnRepo_Admission(t *testing.T) {
	limiter := concurrency.NewManager(1)
	runner := &fakeRunner{}
	r := newTestRouter(t, Options{Runner: runner, Limiter: limiter})

	release, err := limiter.Acquire("https://github.com/acme/widgets.git")
	require.NoError(t, err)

	rec := post(r, validBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(r, `{"repoUrl":"https://github.com/acme/other","prompt":"Add a health check endpoint"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, runner.calls)

	release()
	rec = post(r, validBody)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The slot is returned once the stream ends.
	rec = post(r, validBody)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPromptOnRepo_RequireAuth(t *testing.T) {
	svc, err := auth.New(auth.Config{
		SecretKey:    "test-secret",
		Algorithm:    "HS256",
		TTL:          time.Minute,
		DemoUsername: "admin",
		DemoPassword: "password123",
	})
	require.NoError(t, err)
	runner := &fakeRunner{}
	r := newTestRouter(t, Options{Runner: runner, Auth: svc, RequireAuth: true})

	rec := post(r, validBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	u, err := svc.Authenticate("admin", "password123")
	require.NoError(t, err)
	tok, err := svc.IssueToken(u)
	require.NoError(t, err)

	rec = post(r, validBody, "Authorization", "Bearer "+tok.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, runner.calls, 1)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	store := taskstore.NewMemoryStore()
	require.NoError(t, store.Create(ctx, &taskstore.Run{ID: "run-1", RepoURL: "https://github.com/acme/widgets", Prompt: "p", Status: taskstore.StatusRunning}))
	require.NoError(t, store.AddLog(ctx, "run-1", "start", "Initializing AI coding agent..."))
	r := newTestRouter(t, Options{Runner: &fakeRunner{}, Store: store})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []taskstore.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var run taskstore.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	require.Len(t, run.Logs, 1)
	assert.Equal(t, "start", run.Logs[0].Kind)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
