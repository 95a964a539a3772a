package executor

import (
	"context"
	"fmt"

	"github.com/cexll/codeagent/internal/describer"
	"github.com/cexll/codeagent/internal/editor"
	"github.com/cexll/codeagent/internal/metrics"
	"github.com/cexll/codeagent/internal/planner"
	"github.com/cexll/codeagent/internal/progress"
	"github.com/cexll/codeagent/internal/vcs"
)

var (
	_ Gateway   = (*vcs.Gateway)(nil)
	_ Planner   = (*planner.Planner)(nil)
	_ Editor    = (*editor.Editor)(nil)
	_ Describer = (*describer.Describer)(nil)
)

// Action is the file operation a FileOutcome describes.
type Action string

const (
	ActionEdit   Action = "edit"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

// FileStatus is the result of one file operation.
type FileStatus string

const (
	FileModified FileStatus = "modified"
	FileSkipped  FileStatus = "skipped"
	FileFailed   FileStatus = "failed"
)

// FileOutcome records what happened to one planned path.
type FileOutcome struct {
	Path   string
	Action Action
	Status FileStatus
	Err    error
}

func countModified(outcomes []FileOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == FileModified {
			n++
		}
	}
	return n
}

func observe(o FileOutcome) FileOutcome {
	metrics.FileOutcomes.WithLabelValues(string(o.Action), string(o.Status)).Inc()
	return o
}

// editFiles rewrites each existing path. Missing paths are skipped.
// The error is non-nil only when ctx ends.
func (r *run) editFiles(ctx context.Context, root string, paths []string) ([]FileOutcome, error) {
	var out []FileOutcome
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r.emit(ctx, progress.KindEdit, "Editing file: "+p)

		if !editor.Exists(root, p) {
			r.emit(ctx, progress.KindWarning, "File not found, skipping: "+p)
			out = append(out, observe(FileOutcome{Path: p, Action: ActionEdit, Status: FileSkipped}))
			continue
		}

		content, err := r.ex.editor.Apply(ctx, root, p, r.req.Prompt, false)
		if err != nil {
			r.emit(ctx, progress.KindWarning, fmt.Sprintf("Failed to edit %s: %v", p, err))
			out = append(out, observe(FileOutcome{Path: p, Action: ActionEdit, Status: FileFailed, Err: err}))
			continue
		}
		r.emit(ctx, progress.KindEdit, "Successfully edited: "+p)
		r.validate(ctx, p, content)
		out = append(out, observe(FileOutcome{Path: p, Action: ActionEdit, Status: FileModified}))
	}
	return out, nil
}

// createFiles writes each path from scratch.
func (r *run) createFiles(ctx context.Context, root string, paths []string) ([]FileOutcome, error) {
	var out []FileOutcome
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r.emit(ctx, progress.KindCreate, "Creating file: "+p)

		content, err := r.ex.editor.Apply(ctx, root, p, r.req.Prompt, true)
		if err != nil {
			r.emit(ctx, progress.KindWarning, fmt.Sprintf("Failed to create %s: %v", p, err))
			out = append(out, observe(FileOutcome{Path: p, Action: ActionCreate, Status: FileFailed, Err: err}))
			continue
		}
		r.emit(ctx, progress.KindCreate, "Successfully created: "+p)
		r.validate(ctx, p, content)
		out = append(out, observe(FileOutcome{Path: p, Action: ActionCreate, Status: FileModified}))
	}
	return out, nil
}

// deleteFiles removes each path. Missing paths are skipped.
func (r *run) deleteFiles(ctx context.Context, root string, paths []string) ([]FileOutcome, error) {
	var out []FileOutcome
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r.emit(ctx, progress.KindDelete, "Deleting file: "+p)

		removed, err := editor.Delete(root, p)
		switch {
		case err != nil:
			r.emit(ctx, progress.KindWarning, fmt.Sprintf("Failed to delete %s: %v", p, err))
			out = append(out, observe(FileOutcome{Path: p, Action: ActionDelete, Status: FileFailed, Err: err}))
		case !removed:
			r.emit(ctx, progress.KindWarning, "File not found, skipping delete: "+p)
			out = append(out, observe(FileOutcome{Path: p, Action: ActionDelete, Status: FileSkipped}))
		default:
			r.emit(ctx, progress.KindDelete, "Successfully deleted: "+p)
			out = append(out, observe(FileOutcome{Path: p, Action: ActionDelete, Status: FileModified}))
		}
	}
	return out, nil
}

// validate warns when generated content does not parse; the file is kept.
func (r *run) validate(ctx context.Context, path, content string) {
	if err := editor.Validate(path, content); err != nil {
		r.emit(ctx, progress.KindWarning, fmt.Sprintf("Generated content for %s may be invalid: %v", path, err))
	}
}
