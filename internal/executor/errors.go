package executor

import (
	"errors"
	"fmt"
)

// Stage names a step of a run. Its string form completes "Failed to ...".
type Stage string

const (
	StageInit     Stage = "initialize"
	StageClone    Stage = "clone repository"
	StageAnalyze  Stage = "analyze repository"
	StagePlan     Stage = "plan changes"
	StageBranch   Stage = "create branch"
	StageEdit     Stage = "edit files"
	StageCreate   Stage = "create files"
	StageDelete   Stage = "delete files"
	StageCommit   Stage = "commit and push"
	StageDescribe Stage = "generate pull request description"
	StageOpenPR   Stage = "create pull request"
)

// StageError is the error that ended a run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("Failed to %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage reports the stage that ended a run, if err came from one.
func FailedStage(err error) (Stage, bool) {
	if err == nil {
		return "", false
	}

	var target *StageError
	if errors.As(err, &target) {
		return target.Stage, true
	}
	return "", false
}

// panicError wraps a value recovered from a panic inside a run.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("Unexpected error: %v", e.value)
}
