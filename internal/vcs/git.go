package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// ErrNothingToCommit is returned by CommitAndPush when the worktree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

const remoteName = "origin"

// auth returns basic auth for http(s) remotes when a token is configured.
func (g *Gateway) auth(rawURL string) transport.AuthMethod {
	if g.token == "" || !isHTTP(rawURL) {
		return nil
	}
	return &githttp.BasicAuth{Username: tokenUser, Password: g.token}
}

// Clone clones repoURL into localPath. The origin remote is left
// credential-free afterwards.
func (g *Gateway) Clone(ctx context.Context, repoURL, localPath string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	clean := StripCredentials(repoURL)
	clog.FromContext(ctx).With("repo", clean).Infof("cloning repository into %s", localPath)

	repo, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
		URL:  AuthURL(repoURL, g.token),
		Auth: g.auth(clean),
	})
	if err != nil {
		return fmt.Errorf("cloning %s: %w", clean, g.redact(err))
	}

	if err := setRemoteURL(repo, clean); err != nil {
		return fmt.Errorf("resetting remote for %s: %w", clean, err)
	}
	return nil
}

// CreateBranch creates refs/heads/<name> at HEAD and checks it out.
func (g *Gateway) CreateBranch(ctx context.Context, localPath, name string) error {
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("opening repository %s: %w", localPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}

	refName := plumbing.NewBranchReferenceName(name)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return fmt.Errorf("creating branch %s: %w", name, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: refName}); err != nil {
		return fmt.Errorf("checking out branch %s: %w", name, err)
	}

	clog.FromContext(ctx).With("branch", name).Infof("created branch at %s", head.Hash().String()[:7])
	return nil
}

// CommitAndPush stages every change in localPath (deletions included),
// commits it with the gateway identity and pushes branch to origin with
// upstream tracking. A rejected push is retried once with force.
func (g *Gateway) CommitAndPush(ctx context.Context, localPath, message, branch string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	log := clog.FromContext(ctx).With("branch", branch)

	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return fmt.Errorf("opening repository %s: %w", localPath, err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("reading repository config: %w", err)
	}
	cfg.User.Name = g.identity.Name
	cfg.User.Email = g.identity.Email
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("setting committer identity: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("reading worktree status: %w", err)
	}
	if status.IsClean() {
		return ErrNothingToCommit
	}

	for file, st := range status {
		switch st.Worktree {
		case git.Unmodified:
			continue
		case git.Deleted:
			if _, err := wt.Remove(file); err != nil {
				return fmt.Errorf("staging removal of %s: %w", file, err)
			}
		default:
			if _, err := wt.Add(file); err != nil {
				return fmt.Errorf("staging %s: %w", file, err)
			}
		}
	}

	sig := &object.Signature{Name: g.identity.Name, Email: g.identity.Email, When: time.Now()}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return fmt.Errorf("committing changes: %w", err)
	}
	log.Infof("committed %s", hash.String()[:7])

	remote, err := repo.Remote(remoteName)
	if err != nil {
		return fmt.Errorf("reading remote %s: %w", remoteName, err)
	}
	clean := StripCredentials(remote.Config().URLs[0])
	if err := setRemoteURL(repo, AuthURL(clean, g.token)); err != nil {
		return fmt.Errorf("configuring remote for push: %w", err)
	}

	refName := plumbing.NewBranchReferenceName(branch)
	opts := &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(fmt.Sprintf("%s:%s", refName, refName))},
		Auth:       g.auth(clean),
	}
	push := func(o *git.PushOptions) error { return g.push(ctx, repo, o) }
	if err := pushWithForceFallback(ctx, opts, push); err != nil {
		return fmt.Errorf("pushing %s: %w", branch, g.redact(err))
	}

	if err := setUpstream(repo, branch); err != nil {
		return fmt.Errorf("setting upstream for %s: %w", branch, err)
	}
	log.Infof("pushed to %s", clean)
	return nil
}

func (g *Gateway) push(ctx context.Context, repo *git.Repository, opts *git.PushOptions) error {
	err := repo.PushContext(ctx, opts)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// pushWithForceFallback pushes once and, only when the remote rejected the
// update, once more with force.
func pushWithForceFallback(ctx context.Context, opts *git.PushOptions, push func(*git.PushOptions) error) error {
	err := push(opts)
	if err == nil || ctx.Err() != nil || !isRejectedPush(err) {
		return err
	}
	clog.FromContext(ctx).Warnf("push rejected, retrying with force")
	forced := *opts
	forced.Force = true
	return push(&forced)
}

// isRejectedPush reports whether err means the remote refused the ref update,
// as opposed to failing to reach or authenticate against the remote.
func isRejectedPush(err error) bool {
	if errors.Is(err, git.ErrNonFastForwardUpdate) || errors.Is(err, git.ErrForceNeeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "non-fast-forward") ||
		strings.Contains(msg, "rejected") ||
		strings.Contains(msg, "fetch first")
}

func setRemoteURL(repo *git.Repository, rawURL string) error {
	cfg, err := repo.Config()
	if err != nil {
		return err
	}
	remote, ok := cfg.Remotes[remoteName]
	if !ok {
		return fmt.Errorf("remote %s not configured", remoteName)
	}
	remote.URLs = []string{rawURL}
	return repo.SetConfig(cfg)
}

func setUpstream(repo *git.Repository, branch string) error {
	cfg, err := repo.Config()
	if err != nil {
		return err
	}
	cfg.Branches[branch] = &gitconfig.Branch{
		Name:   branch,
		Remote: remoteName,
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	return repo.SetConfig(cfg)
}
