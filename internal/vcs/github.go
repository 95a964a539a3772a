package vcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v66/github"
)

// ErrBranchNotFound is returned when the pushed branch is not visible on the host.
var ErrBranchNotFound = errors.New("branch not found")

const fallbackBaseBranch = "main"

// CreatePullRequest opens a pull request from branch into the repository's
// default branch and returns its URL. When a pull request for the branch is
// already open, that pull request's URL is returned instead.
func (g *Gateway) CreatePullRequest(ctx context.Context, repoURL, branch, title, body string) (string, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return "", err
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	log := clog.FromContext(ctx).With("repo", owner+"/"+repo, "branch", branch)

	if err := g.ensureBranch(ctx, owner, repo, branch); err != nil {
		return "", fmt.Errorf("checking branch %s on %s/%s: %w", branch, owner, repo, err)
	}

	base, err := g.defaultBranch(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("reading default branch of %s/%s: %w", owner, repo, err)
	}

	pr, resp, err := g.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branch),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		if isAlreadyExists(resp, err) {
			log.Infof("pull request already exists, looking it up")
			return g.findOpenPullRequest(ctx, owner, repo, branch)
		}
		return "", fmt.Errorf("creating pull request %s -> %s on %s/%s: %w", branch, base, owner, repo, g.redact(err))
	}

	log.Infof("created pull request #%d", pr.GetNumber())
	return pr.GetHTMLURL(), nil
}

// ensureBranch checks once that the pushed branch is visible on the host.
func (g *Gateway) ensureBranch(ctx context.Context, owner, repo, branch string) error {
	_, resp, err := g.client.Repositories.GetBranch(ctx, owner, repo, branch, 0)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrBranchNotFound
		}
		return g.redact(err)
	}
	return nil
}

func (g *Gateway) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, _, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", g.redact(err)
	}
	if b := r.GetDefaultBranch(); b != "" {
		return b, nil
	}
	return fallbackBaseBranch, nil
}

// findOpenPullRequest returns the open pull request whose head ref is exactly branch.
func (g *Gateway) findOpenPullRequest(ctx context.Context, owner, repo, branch string) (string, error) {
	prs, _, err := g.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + branch,
	})
	if err != nil {
		return "", fmt.Errorf("listing pull requests for %s on %s/%s: %w", branch, owner, repo, g.redact(err))
	}
	for _, pr := range prs {
		if pr.GetHead().GetRef() == branch {
			return pr.GetHTMLURL(), nil
		}
	}
	return "", fmt.Errorf("pull request for %s already exists on %s/%s but no open pull request has that head", branch, owner, repo)
}

func isAlreadyExists(resp *github.Response, err error) bool {
	if resp == nil || resp.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
