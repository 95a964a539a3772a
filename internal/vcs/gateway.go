// Package vcs clones repositories, commits and pushes changes with go-git, and
// opens pull requests through the GitHub REST API.
package vcs

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Identity is the committer recorded on every commit.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity is used when Options.Identity is empty.
var DefaultIdentity = Identity{Name: "AI Coding Agent", Email: "ai-agent@backspace.dev"}

// Options configures a Gateway.
type Options struct {
	// Token authenticates git over https and the GitHub API.
	Token string
	// APIBaseURL overrides https://api.github.com/ (GitHub Enterprise, tests).
	APIBaseURL string
	Identity   Identity
	// Timeout bounds each gateway operation; zero means no extra bound.
	Timeout time.Duration
}

// Gateway performs version-control operations for a run.
type Gateway struct {
	token    string
	identity Identity
	timeout  time.Duration
	client   *github.Client
}

// New creates a gateway. The context only scopes the OAuth2 HTTP client setup.
func New(ctx context.Context, opts Options) (*Gateway, error) {
	var client *github.Client
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}

	if opts.APIBaseURL != "" {
		base := opts.APIBaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing GitHub API URL: %w", err)
		}
		client.BaseURL = u
		client.UploadURL = u
	}

	identity := opts.Identity
	if identity.Name == "" || identity.Email == "" {
		identity = DefaultIdentity
	}

	return &Gateway{
		token:    opts.Token,
		identity: identity,
		timeout:  opts.Timeout,
		client:   client,
	}, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// redact wraps err so its message never contains the token.
func (g *Gateway) redact(err error) error {
	if err == nil || g.token == "" || !strings.Contains(err.Error(), g.token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), g.token, "***"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
