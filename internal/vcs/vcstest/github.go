// Package vcstest provides a fake GitHub REST API for exercising the vcs gateway.
package vcstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// PullRequest is a pull request held by the fake server.
type PullRequest struct {
	Number int
	Head   string
	Base   string
	Title  string
	Body   string
	URL    string
}

// GitHub is an in-memory stand-in for the subset of the GitHub API the gateway uses:
//   - GET  /repos/{owner}/{repo}
//   - GET  /repos/{owner}/{repo}/branches/{branch}
//   - GET  /repos/{owner}/{repo}/pulls?state=open&head=owner:branch
//   - POST /repos/{owner}/{repo}/pulls
type GitHub struct {
	Owner         string
	Repo          string
	DefaultBranch string

	// LooseHeadFilter makes the list endpoint ignore the head filter, the way
	// some GitHub Enterprise versions do.
	LooseHeadFilter bool

	mu       sync.Mutex
	branches map[string]bool
	pulls    []*PullRequest
	requests []string
	server   *httptest.Server
}

// NewGitHub starts a fake server for owner/repo. Call Close when done.
func NewGitHub(owner, repo string) *GitHub {
	g := &GitHub{
		Owner:         owner,
		Repo:          repo,
		DefaultBranch: "main",
		branches:      map[string]bool{"main": true},
	}

	mux := http.NewServeMux()
	prefix := fmt.Sprintf("/repos/%s/%s", owner, repo)
	mux.HandleFunc("GET "+prefix, g.handleRepo)
	mux.HandleFunc("GET "+prefix+"/branches/{branch...}", g.handleBranch)
	mux.HandleFunc("GET "+prefix+"/pulls", g.handleListPulls)
	mux.HandleFunc("POST "+prefix+"/pulls", g.handleCreatePull)

	g.server = httptest.NewServer(g.record(mux))
	return g
}

// URL is the API base URL to pass to vcs.Options.
func (g *GitHub) URL() string { return g.server.URL + "/" }

// Close shuts the server down.
func (g *GitHub) Close() { g.server.Close() }

// AddBranch marks branch as present on the host.
func (g *GitHub) AddBranch(branch string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.branches[branch] = true
}

// AddPullRequest registers an open pull request and returns it.
func (g *GitHub) AddPullRequest(head, title string) *PullRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addPullLocked(head, g.DefaultBranch, title, "")
}

// PullRequests returns the open pull requests.
func (g *GitHub) PullRequests() []PullRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PullRequest, 0, len(g.pulls))
	for _, pr := range g.pulls {
		out = append(out, *pr)
	}
	return out
}

// Requests returns "METHOD path" for every request received.
func (g *GitHub) Requests() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.requests...)
}

func (g *GitHub) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.requests = append(g.requests, r.Method+" "+r.URL.Path)
		g.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (g *GitHub) addPullLocked(head, base, title, body string) *PullRequest {
	n := len(g.pulls) + 1
	pr := &PullRequest{
		Number: n,
		Head:   head,
		Base:   base,
		Title:  title,
		Body:   body,
		URL:    fmt.Sprintf("https://github.com/%s/%s/pull/%d", g.Owner, g.Repo, n),
	}
	g.pulls = append(g.pulls, pr)
	return pr
}

func (g *GitHub) handleRepo(w http.ResponseWriter, _ *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":           g.Repo,
		"full_name":      g.Owner + "/" + g.Repo,
		"default_branch": g.DefaultBranch,
	})
}

func (g *GitHub) handleBranch(w http.ResponseWriter, r *http.Request) {
	branch := r.PathValue("branch")
	g.mu.Lock()
	ok := g.branches[branch]
	g.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Branch not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": branch})
}

func (g *GitHub) handleListPulls(w http.ResponseWriter, r *http.Request) {
	head := r.URL.Query().Get("head")
	g.mu.Lock()
	defer g.mu.Unlock()

	out := []map[string]any{}
	for _, pr := range g.pulls {
		if !g.LooseHeadFilter && head != "" && head != g.Owner+":"+pr.Head {
			continue
		}
		out = append(out, pullJSON(pr))
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *GitHub) handleCreatePull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Head  string `json:"head"`
		Base  string `json:"base"`
		Body  string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
		return
	}
	head := req.Head
	if i := strings.Index(head, ":"); i >= 0 {
		head = head[i+1:]
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, pr := range g.pulls {
		if pr.Head == head {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"message": "Validation Failed",
				"errors": []map[string]string{{
					"resource": "PullRequest",
					"code":     "custom",
					"message":  fmt.Sprintf("A pull request already exists for %s:%s.", g.Owner, head),
				}},
			})
			return
		}
	}
	pr := g.addPullLocked(head, req.Base, req.Title, req.Body)
	writeJSON(w, http.StatusCreated, pullJSON(pr))
}

func pullJSON(pr *PullRequest) map[string]any {
	return map[string]any{
		"number":   pr.Number,
		"title":    pr.Title,
		"body":     pr.Body,
		"state":    "open",
		"html_url": pr.URL,
		"head":     map[string]string{"ref": pr.Head},
		"base":     map[string]string{"ref": pr.Base},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
