package vcs

import (
	"context"
	"strings"
	"testing"

	"github.com/cexll/codeagent/internal/vcs/vcstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const widgetsURL = "https://github.com/acme/widgets.git"

func newFakeGateway(t *testing.T) (*Gateway, *vcstest.GitHub) {
	t.Helper()
	fake := vcstest.NewGitHub("acme", "widgets")
	t.Cleanup(fake.Close)

	g, err := New(context.Background(), Options{Token: "test-token", APIBaseURL: fake.URL()})
	require.NoError(t, err)
	return g, fake
}

func TestCreatePullRequest_Success(t *testing.T) {
	g, fake := newFakeGateway(t)
	fake.DefaultBranch = "develop"
	fake.AddBranch(testBranch)

	url, err := g.CreatePullRequest(context.Background(), widgetsURL, testBranch, "Add docs", "body")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/widgets/pull/1", url)

	prs := fake.PullRequests()
	require.Len(t, prs, 1)
	assert.Equal(t, testBranch, prs[0].Head)
	assert.Equal(t, "develop", prs[0].Base)
	assert.Equal(t, "Add docs", prs[0].Title)
	assert.Equal(t, "body", prs[0].Body)
}

func TestCreatePullRequest_InvalidURLMakesNoRequest(t *testing.T) {
	g, fake := newFakeGateway(t)

	_, err := g.CreatePullRequest(context.Background(), "https://github.com/acme", testBranch, "t", "b")
	require.ErrorIs(t, err, ErrInvalidRepoURL)
	assert.Empty(t, fake.Requests())
}

func TestCreatePullRequest_BranchMissingChecksOnce(t *testing.T) {
	g, fake := newFakeGateway(t)

	_, err := g.CreatePullRequest(context.Background(), widgetsURL, testBranch, "t", "b")
	require.ErrorIs(t, err, ErrBranchNotFound)
	assert.Contains(t, err.Error(), testBranch)

	var branchChecks int
	for _, r := range fake.Requests() {
		if strings.Contains(r, "/branches/") {
			branchChecks++
		}
	}
	assert.Equal(t, 1, branchChecks)
	assert.Empty(t, fake.PullRequests())
}

func TestCreatePullRequest_ReturnsExistingPullRequest(t *testing.T) {
	g, fake := newFakeGateway(t)
	fake.AddBranch(testBranch)
	existing := fake.AddPullRequest(testBranch, "earlier run")

	url, err := g.CreatePullRequest(context.Background(), widgetsURL, testBranch, "t", "b")
	require.NoError(t, err)
	assert.Equal(t, existing.URL, url)
	assert.Len(t, fake.PullRequests(), 1)
}

func TestCreatePullRequest_ExistingRequiresExactHead(t *testing.T) {
	g, fake := newFakeGateway(t)
	fake.LooseHeadFilter = true
	fake.AddBranch(testBranch)
	fake.AddPullRequest("ai-agent-11111111", "someone else")
	ours := fake.AddPullRequest(testBranch, "ours")

	url, err := g.CreatePullRequest(context.Background(), widgetsURL, testBranch, "t", "b")
	require.NoError(t, err)
	assert.Equal(t, ours.URL, url)
}

func TestCreatePullRequest_CancelledContext(t *testing.T) {
	g, fake := newFakeGateway(t)
	fake.AddBranch(testBranch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.CreatePullRequest(ctx, widgetsURL, testBranch, "t", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
