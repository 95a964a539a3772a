package executor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cexll/codeagent/internal/vcs"
)

func TestStageError(t *testing.T) {
	err := &StageError{Stage: StageCommit, Err: vcs.ErrNothingToCommit}

	if got, want := err.Error(), "Failed to commit and push: nothing to commit"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, vcs.ErrNothingToCommit) {
		t.Fatal("StageError should unwrap to its cause")
	}
}

func TestFailedStage(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		if _, ok := FailedStage(nil); ok {
			t.Fatal("nil should not report a stage")
		}
	})

	t.Run("generic error", func(t *testing.T) {
		if _, ok := FailedStage(errors.New("boom")); ok {
			t.Fatal("generic errors must not report a stage")
		}
	})

	t.Run("wrapped stage error", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", &StageError{Stage: StageClone, Err: errors.New("x")})
		stage, ok := FailedStage(wrapped)
		if !ok || stage != StageClone {
			t.Fatalf("FailedStage = %q, %v; want %q, true", stage, ok, StageClone)
		}
	})
}
