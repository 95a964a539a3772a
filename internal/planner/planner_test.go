package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cexll/codeagent/internal/provider/providertest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = "REPOSITORY STRUCTURE ANALYSIS\nrequirements.txt\napp.py"

func TestPlanner_Structured(t *testing.T) {
	llm := providertest.NewScripted(providertest.Text(`{"edit":["a.py"],"create":[],"delete":[]}`))

	res, err := New(llm, 8).Plan(context.Background(), "rename the helper in a.py", report)
	require.NoError(t, err)

	assert.Equal(t, TierStructured, res.Tier)
	assert.NoError(t, res.Cause)
	if diff := cmp.Diff(Plan{Edit: []string{"a.py"}, Create: []string{}, Delete: []string{}}, res.Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "Return ONLY a valid JSON object")
	assert.Contains(t, reqs[0].Prompt, "USER REQUEST: rename the helper in a.py")
	assert.Contains(t, reqs[0].Prompt, report)
	assert.Contains(t, reqs[0].Prompt, "language=python")
	assert.InDelta(t, 0.1, reqs[0].Temperature, 1e-9)
}

func TestPlanner_NonJSONReplyFallsBackToHeuristic(t *testing.T) {
	llm := providertest.NewScripted(providertest.Text("Sure, I will add some tests."))

	res, err := New(llm, 8).Plan(context.Background(), "add tests", report)
	require.NoError(t, err)

	assert.Equal(t, TierHeuristic, res.Tier)
	assert.Error(t, res.Cause)
	assert.Equal(t, Plan{Edit: []string{}, Create: []string{"test_new_feature.py"}, Delete: []string{}}, res.Plan)
}

func TestPlanner_CallFailureFallsBack(t *testing.T) {
	llm := providertest.NewScripted(providertest.Fail(errors.New("quota exceeded")))

	res, err := New(llm, 8).Plan(context.Background(), "update the readme intro", report)
	require.NoError(t, err)

	assert.Equal(t, TierHeuristic, res.Tier)
	require.Error(t, res.Cause)
	assert.Contains(t, res.Cause.Error(), "quota exceeded")
	assert.Equal(t, []string{"README.md"}, res.Plan.Edit)
}

func TestPlanner_EmptyFallback(t *testing.T) {
	llm := providertest.NewScripted(providertest.Text("no idea"))

	res, err := New(llm, 8).Plan(context.Background(), "make it faster", report)
	require.NoError(t, err)
	assert.Equal(t, TierEmpty, res.Tier)
	assert.Zero(t, res.Plan.Total())
}

func TestPlanner_CapsAndCleans(t *testing.T) {
	reply := `{"edit":["a.py","b.py","c.py","d.py","e.py","f.py","g.py"],` +
		`"create":["x.py","y.py","z.py","../escape.py"],"delete":["old1.py","old2.py","img.png"]}`
	llm := providertest.NewScripted(providertest.Text(reply))

	res, err := New(llm, 0).Plan(context.Background(), "big refactor", report)
	require.NoError(t, err)

	assert.LessOrEqual(t, res.Plan.Total(), DefaultMaxFiles)
	assert.Len(t, res.Plan.Edit, 6)
	assert.Equal(t, []string{"x.py", "y.py"}, res.Plan.Create)
	assert.Empty(t, res.Plan.Delete)
	for _, p := range res.Plan.Create {
		assert.False(t, strings.Contains(p, ".."))
	}
}

func TestPlanner_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(providertest.NewScripted(), 8).Plan(ctx, "add tests", report)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
