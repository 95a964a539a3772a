package editor

import (
	"path"
	"strings"
)

var languages = map[string]string{
	".py":   "Python",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".jsx":  "React JSX",
	".tsx":  "React TypeScript",
	".java": "Java",
	".cpp":  "C++",
	".c":    "C",
	".cs":   "C#",
	".rb":   "Ruby",
	".php":  "PHP",
	".go":   "Go",
	".rs":   "Rust",
	".html": "HTML",
	".css":  "CSS",
	".scss": "SCSS",
	".json": "JSON",
	".yaml": "YAML",
	".yml":  "YAML",
	".xml":  "XML",
	".md":   "Markdown",
	".txt":  "Plain Text",
	".sh":   "Shell Script",
	".sql":  "SQL",
}

// Language returns the display name used to prompt for a file's language.
func Language(relPath string) string {
	if name, ok := languages[strings.ToLower(path.Ext(relPath))]; ok {
		return name
	}
	return "Plain Text"
}
