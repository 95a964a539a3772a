// Package editor rewrites single files through an LLM.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cexll/codeagent/internal/provider"
	"github.com/cexll/codeagent/internal/provider/shared"
	"github.com/chainguard-dev/clog"
)

// File status labels sent to the LLM.
const (
	StatusNew      = "NEW FILE"
	StatusExisting = "EXISTING FILE"
	StatusBinary   = "BINARY/ENCODED FILE"
)

// ErrOutsideRepo is returned for paths that resolve outside the repository.
var ErrOutsideRepo = errors.New("path escapes repository root")

// Editor applies a change request to one file at a time.
type Editor struct {
	llm provider.Provider
}

// New creates an editor backed by llm.
func New(llm provider.Provider) *Editor {
	return &Editor{llm: llm}
}

// Apply asks the LLM for the complete new content of relPath and writes it,
// creating parent directories as needed. A missing file is treated as new.
// The returned content is what was written.
func (e *Editor) Apply(ctx context.Context, root, relPath, prompt string, isNew bool) (string, error) {
	content, err := e.apply(ctx, root, relPath, prompt, isNew)
	if err != nil {
		return "", fmt.Errorf("failed to edit file %s: %w", relPath, err)
	}
	return content, nil
}

func (e *Editor) apply(ctx context.Context, root, relPath, prompt string, isNew bool) (string, error) {
	full, err := resolve(root, relPath)
	if err != nil {
		return "", err
	}

	existing, status, err := readCurrent(full, isNew)
	if err != nil {
		return "", err
	}
	language := Language(relPath)

	clog.FromContext(ctx).With("file", relPath).Debugf("editing %s (%s)", status, language)

	reply, err := e.llm.Complete(ctx, &provider.Request{
		System:      systemPrompt(relPath, language, status),
		Prompt:      userMessage(relPath, prompt, language, existing, isNew || status == StatusNew),
		Temperature: 0.1,
		MaxTokens:   4000,
	})
	if err != nil {
		return "", err
	}
	content := shared.StripFence(reply)

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return content, nil
}

// Delete removes relPath. It reports false, without error, when the file does not exist.
func Delete(root, relPath string) (bool, error) {
	full, err := resolve(root, relPath)
	if err != nil {
		return false, fmt.Errorf("failed to delete file %s: %w", relPath, err)
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete file %s: %w", relPath, err)
	}
	return true, nil
}

// Exists reports whether relPath names an existing regular file under root.
func Exists(root, relPath string) bool {
	full, err := resolve(root, relPath)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

func resolve(root, relPath string) (string, error) {
	full := filepath.Join(root, filepath.FromSlash(relPath))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRepo
	}
	return full, nil
}

func readCurrent(full string, isNew bool) (string, string, error) {
	if isNew {
		return "", StatusNew, nil
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", StatusNew, nil
		}
		return "", "", fmt.Errorf("reading file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", StatusBinary, nil
	}
	return string(data), StatusExisting, nil
}

func systemPrompt(relPath, language, status string) string {
	return fmt.Sprintf(`You are an expert software engineer tasked with editing code files.

IMPORTANT RULES:
1. Return ONLY the complete file content, no explanations or markdown formatting
2. Make targeted changes that directly address the user's request
3. Preserve existing code structure and style unless changes are needed
4. Follow best practices for the %[2]s language
5. Ensure the code is syntactically correct and follows proper conventions
6. For new files, create complete, working code that serves the intended purpose
7. Do not add unnecessary comments unless they add significant value

FILE CONTEXT:
- File: %[1]s
- Language: %[2]s
- Status: %[3]s`, relPath, language, status)
}

func userMessage(relPath, prompt, language, existing string, isNew bool) string {
	if isNew {
		return fmt.Sprintf(`CREATE NEW FILE: %s

USER REQUEST: %s

Create a complete %s file that addresses this request. Return only the file content.`,
			relPath, prompt, language)
	}
	return fmt.Sprintf(`EDIT EXISTING FILE: %s

USER REQUEST: %s

CURRENT FILE CONTENT:
%s

Modify this file to address the user's request. Return the complete updated file content.`,
		relPath, prompt, existing)
}
