package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validate performs a basic syntax check for JSON, YAML and Go content.
// Other file types always pass.
func Validate(relPath, content string) error {
	switch strings.ToLower(path.Ext(relPath)) {
	case ".json":
		var v any
		if err := json.Unmarshal([]byte(content), &v); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(strings.NewReader(content))
		for {
			var v any
			err := dec.Decode(&v)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("invalid YAML: %w", err)
			}
		}
	case ".go":
		if _, err := parser.ParseFile(token.NewFileSet(), relPath, content, parser.AllErrors); err != nil {
			return fmt.Errorf("invalid Go syntax: %w", err)
		}
	}
	return nil
}
