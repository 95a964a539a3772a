package snapshot

import (
	"fmt"
	"strings"
)

// Project is a coarse guess at what a repository contains.
type Project struct {
	Language  string
	Framework string
	Type      string
}

// String renders the guess for inclusion in a prompt.
func (p Project) String() string {
	return fmt.Sprintf("language=%s framework=%s type=%s", p.Language, p.Framework, p.Type)
}

// DetectProject guesses language, framework and project type from a report
// by keyword matching. The guess only steers prompts.
func DetectProject(report string) Project {
	p := Project{Language: "unknown", Framework: "unknown", Type: "unknown"}
	lower := strings.ToLower(report)

	switch {
	case strings.Contains(report, "package.json"):
		p.Language = "javascript"
		p.Framework = firstKeyword(lower, "react", "vue", "angular", "express", "next")
		if p.Framework == "next" {
			p.Framework = "nextjs"
		}
	case strings.Contains(report, "requirements.txt") || strings.Contains(report, "pyproject.toml"):
		p.Language = "python"
		p.Framework = firstKeyword(lower, "django", "flask", "fastapi")
	case strings.Contains(report, "Gemfile"):
		p.Language = "ruby"
		p.Framework = "ruby"
		if strings.Contains(lower, "rails") {
			p.Framework = "rails"
		}
	case strings.Contains(report, "pom.xml") || strings.Contains(report, "build.gradle"):
		p.Language = "java"
		p.Framework = firstKeyword(lower, "spring")
	case strings.Contains(report, "Cargo.toml"):
		p.Language = "rust"
	case strings.Contains(report, "go.mod"):
		p.Language = "go"
	}

	switch {
	case strings.Contains(lower, "api") || strings.Contains(lower, "server"):
		p.Type = "api"
	case strings.Contains(lower, "frontend") || strings.Contains(lower, "client"):
		p.Type = "frontend"
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "android") || strings.Contains(lower, "ios"):
		p.Type = "mobile"
	case strings.Contains(lower, "cli") || strings.Contains(lower, "command"):
		p.Type = "cli"
	case strings.Contains(lower, "lib") || strings.Contains(lower, "package"):
		p.Type = "library"
	default:
		p.Type = "application"
	}
	return p
}

func firstKeyword(text string, keywords ...string) string {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return k
		}
	}
	return "unknown"
}
