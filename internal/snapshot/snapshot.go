// Package snapshot produces a bounded text description of a working copy for
// prompting the planner.
package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	maxExtensions    = 10
	maxKeyFiles      = 5
	maxFilesPerDir   = 10
	noExtensionLabel = "(no extension)"
	rootLabel        = "[root]"
)

var ignoredNames = map[string]struct{}{
	".git": {}, ".gitignore": {}, ".github": {}, ".vscode": {}, ".idea": {},
	"node_modules": {}, "__pycache__": {}, ".pytest_cache": {}, ".mypy_cache": {},
	"venv": {}, "env": {}, ".env": {}, ".venv": {},
	"dist": {}, "build": {}, "target": {}, "out": {},
	".DS_Store": {}, "Thumbs.db": {},
	"package-lock.json": {}, "yarn.lock": {}, "poetry.lock": {},
}

var ignoredSuffixes = []string{".pyc", ".pyo", ".pyd", ".so", ".dll", ".log", ".tmp", ".cache"}

// importantFiles are always listed, even when they are dotfiles.
var importantFiles = map[string]struct{}{
	"package.json": {}, "requirements.txt": {}, "Pipfile": {}, "pyproject.toml": {},
	"Dockerfile": {}, "docker-compose.yml": {}, "Makefile": {}, "README.md": {},
	"LICENSE": {}, "CHANGELOG.md": {}, ".env.example": {}, "config.py": {},
	"settings.py": {}, "go.mod": {},
}

// Snapshot is the filtered file listing of a working copy.
type Snapshot struct {
	Root  string
	Files []string // slash-separated paths relative to Root, sorted
}

// Read walks root and collects every file that passes the ignore rules.
// Entries that cannot be read are skipped; an unreadable root is an error.
func Read(root string) (*Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reading repository root: %s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		if Ignored(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking repository: %w", err)
	}

	sort.Strings(files)
	return &Snapshot{Root: root, Files: files}, nil
}

// Ignored reports whether a file or directory name is excluded from snapshots.
func Ignored(name string) bool {
	if _, ok := ignoredNames[name]; ok {
		return true
	}
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	if strings.HasPrefix(name, ".") {
		_, important := importantFiles[name]
		return !important
	}
	return false
}

// Analyze reads root and renders its report.
func Analyze(root string) (string, error) {
	s, err := Read(root)
	if err != nil {
		return "", err
	}
	return s.Report(), nil
}

// Report renders the snapshot as plain text.
func (s *Snapshot) Report() string {
	var b strings.Builder
	b.WriteString("REPOSITORY STRUCTURE ANALYSIS\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Total files analyzed: %d\n\n", len(s.Files))

	b.WriteString("FILE TYPES:\n")
	for _, ec := range s.extensionCounts() {
		fmt.Fprintf(&b, "  %s: %d files\n", ec.ext, ec.count)
	}
	b.WriteString("\n")

	if keys := s.KeyFiles(); len(keys) > 0 {
		b.WriteString("KEY CONFIGURATION FILES:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  - %s\n", k)
		}
		b.WriteString("\n")
	}

	b.WriteString("DIRECTORY STRUCTURE:\n")
	dirs, byDir := s.groupByDir()
	for _, dir := range dirs {
		files := byDir[dir]
		label := dir + "/"
		if dir == "." {
			label = rootLabel + "/"
		}
		fmt.Fprintf(&b, "  %s (%d files)\n", label, len(files))
		shown := files
		if len(shown) > maxFilesPerDir {
			shown = shown[:maxFilesPerDir]
		}
		for _, f := range shown {
			fmt.Fprintf(&b, "    - %s\n", f)
		}
		if extra := len(files) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "    ... and %d more files\n", extra)
		}
	}
	b.WriteString("\n")

	b.WriteString("ANALYSIS NOTES:\n")
	b.WriteString("  - Paths are relative to the repository root\n")
	b.WriteString("  - Key configuration files describe how the project is built and run\n")
	return b.String()
}

// KeyFiles returns up to five recognized configuration files, in path order.
func (s *Snapshot) KeyFiles() []string {
	var keys []string
	for _, f := range s.Files {
		if _, ok := importantFiles[path.Base(f)]; ok {
			keys = append(keys, f)
			if len(keys) == maxKeyFiles {
				break
			}
		}
	}
	return keys
}

type extCount struct {
	ext   string
	count int
}

// extensionCounts returns the ten most common extensions, ties broken by name.
func (s *Snapshot) extensionCounts() []extCount {
	counts := map[string]int{}
	for _, f := range s.Files {
		ext := strings.ToLower(path.Ext(f))
		if ext == "" {
			ext = noExtensionLabel
		}
		counts[ext]++
	}

	out := make([]extCount, 0, len(counts))
	for ext, n := range counts {
		out = append(out, extCount{ext: ext, count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].ext < out[j].ext
	})
	if len(out) > maxExtensions {
		out = out[:maxExtensions]
	}
	return out
}

func (s *Snapshot) groupByDir() ([]string, map[string][]string) {
	byDir := map[string][]string{}
	for _, f := range s.Files {
		dir := path.Dir(f)
		byDir[dir] = append(byDir[dir], path.Base(f))
	}
	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, byDir
}
