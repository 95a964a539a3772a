package editor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cexll/codeagent/internal/provider/providertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApply_StripsFenceAndWrites(t *testing.T) {
	root := t.TempDir()
	llm := providertest.NewScripted(providertest.Text("```python\nprint(1)\n```"))

	content, err := New(llm).Apply(context.Background(), root, "pkg/hello.py", "print one", true)
	require.NoError(t, err)

	assert.Equal(t, "print(1)", content)
	assert.Equal(t, "print(1)", readFile(t, filepath.Join(root, "pkg", "hello.py")))

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].System, "- Language: Python")
	assert.Contains(t, reqs[0].System, "- Status: NEW FILE")
	assert.Contains(t, reqs[0].Prompt, "CREATE NEW FILE: pkg/hello.py")
}

func TestApply_ExistingFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	llm := providertest.NewScripted(providertest.Text("package main\n\nfunc main() {}\n"))

	_, err := New(llm).Apply(context.Background(), root, "main.go", "add main", false)
	require.NoError(t, err)

	assert.Equal(t, "package main\n\nfunc main() {}", readFile(t, filepath.Join(root, "main.go")))

	req := llm.Requests()[0]
	assert.Contains(t, req.System, "- Status: EXISTING FILE")
	assert.Contains(t, req.Prompt, "EDIT EXISTING FILE: main.go")
	assert.Contains(t, req.Prompt, "CURRENT FILE CONTENT:\npackage main\n")
}

func TestApply_MissingFileTreatedAsNew(t *testing.T) {
	root := t.TempDir()
	llm := providertest.NewScripted(providertest.Text("hello"))

	_, err := New(llm).Apply(context.Background(), root, "notes.txt", "say hello", false)
	require.NoError(t, err)
	assert.Contains(t, llm.Requests()[0].System, "- Status: NEW FILE")
}

func TestApply_BinaryContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.txt"), []byte{0xff, 0xfe, 0xfd}, 0o644))
	llm := providertest.NewScripted(providertest.Text("text now"))

	_, err := New(llm).Apply(context.Background(), root, "blob.txt", "make it text", false)
	require.NoError(t, err)

	req := llm.Requests()[0]
	assert.Contains(t, req.System, "- Status: BINARY/ENCODED FILE")
	assert.NotContains(t, req.Prompt, "\xff")
}

func TestApply_LLMFailure(t *testing.T) {
	root := t.TempDir()
	llm := providertest.NewScripted(providertest.Fail(errors.New("rate limited")))

	_, err := New(llm).Apply(context.Background(), root, "a.py", "x", true)
	require.Error(t, err)
	assert.Equal(t, "failed to edit file a.py: rate limited", err.Error())
	assert.False(t, Exists(root, "a.py"))
}

func TestApply_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	llm := providertest.NewScripted(providertest.Text("x"))

	_, err := New(llm).Apply(context.Background(), root, "../outside.py", "x", true)
	assert.ErrorIs(t, err, ErrOutsideRepo)
	assert.Empty(t, llm.Requests())
}

func TestDeleteAndExists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "old.py"), []byte("x"), 0o644))

	assert.True(t, Exists(root, "old.py"))

	deleted, err := Delete(root, "old.py")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, Exists(root, "old.py"))

	deleted, err = Delete(root, "old.py")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = Delete(root, "../x")
	assert.ErrorIs(t, err, ErrOutsideRepo)
}

func TestLanguage(t *testing.T) {
	tests := map[string]string{
		"a.py":          "Python",
		"web/App.TSX":   "React TypeScript",
		"ci.yml":        "YAML",
		"Makefile":      "Plain Text",
		"notes.weird":   "Plain Text",
		"db/schema.sql": "SQL",
	}
	for file, want := range tests {
		assert.Equal(t, want, Language(file), file)
	}
}
