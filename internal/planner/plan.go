// Package planner turns a change request and a repository report into a
// bounded ChangePlan.
package planner

import (
	"fmt"
	"path"
	"strings"
)

const (
	// DefaultMaxFiles is the total file cap applied to every plan.
	DefaultMaxFiles = 8

	maxEdits   = 6
	maxCreates = 2
	maxDeletes = 2
)

// binaryExtensions are never planned; the editor only produces text.
var binaryExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {}, ".rar": {}, ".7z": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {}, ".dat": {},
	".sqlite": {}, ".db": {},
}

// Plan lists the repository-relative paths a run will touch.
// Lists are never nil once a plan leaves this package.
type Plan struct {
	Edit   []string `json:"edit"`
	Create []string `json:"create"`
	Delete []string `json:"delete"`
}

// Total returns the number of planned file operations.
func (p Plan) Total() int {
	return len(p.Edit) + len(p.Create) + len(p.Delete)
}

// Summary renders the per-list counts.
func (p Plan) Summary() string {
	return fmt.Sprintf("Files to edit: %d, Files to create: %d, Files to delete: %d",
		len(p.Edit), len(p.Create), len(p.Delete))
}

func (p Plan) normalized() Plan {
	return Plan{
		Edit:   CleanPaths(p.Edit),
		Create: CleanPaths(p.Create),
		Delete: CleanPaths(p.Delete),
	}
}

// Cap bounds a plan to max total files. Over the cap, lists are first cut to
// 6 edits, 2 creates and 2 deletes; if still over, deletes then creates then
// edits are dropped from the tail. Order within each list is preserved.
func Cap(p Plan, max int) Plan {
	if max <= 0 {
		max = DefaultMaxFiles
	}
	if p.Total() <= max {
		return p
	}

	out := Plan{
		Edit:   head(p.Edit, maxEdits),
		Create: head(p.Create, maxCreates),
		Delete: head(p.Delete, maxDeletes),
	}
	for _, list := range []*[]string{&out.Delete, &out.Create, &out.Edit} {
		if over := out.Total() - max; over > 0 {
			*list = head(*list, len(*list)-over)
		}
	}
	return out
}

func head(s []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if len(s) > n {
		s = s[:n]
	}
	return append([]string{}, s...)
}

// CleanPaths normalizes planned paths to slash-separated, repository-relative
// form and drops duplicates, escapes and binary files.
func CleanPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		p = strings.TrimLeft(p, "/")
		if p == "" || strings.Contains(p, "..") {
			continue
		}
		p = path.Clean(p)
		if p == "." {
			continue
		}
		if _, binary := binaryExtensions[strings.ToLower(path.Ext(p))]; binary {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
