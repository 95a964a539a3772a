package shared

import (
	"regexp"
	"strings"
)

// Request is a single-turn completion request shared by every provider.
type Request struct {
	System      string
	Prompt      string
	Temperature float64 // zero keeps the provider default
	MaxTokens   int     // zero keeps DefaultMaxTokens
}

// DefaultMaxTokens bounds replies when a request does not set MaxTokens.
const DefaultMaxTokens = 4000

// Tokens returns the effective reply token budget.
func (r *Request) Tokens() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return DefaultMaxTokens
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject returns the span from the first "{" to the last "}" in text.
func ExtractJSONObject(text string) (string, bool) {
	match := jsonObjectPattern.FindString(text)
	return match, match != ""
}

// StripFence removes one surrounding Markdown code fence from a reply.
// Only the first and last lines are dropped, and only when the trimmed reply
// starts with ``` and spans more than two lines.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= 2 {
		return text
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// ParseTitleDescription reads a "TITLE: ...\nDESCRIPTION:\n..." reply.
// Lines after the DESCRIPTION marker form the body.
func ParseTitleDescription(text string) (title, body string) {
	var b strings.Builder
	inBody := false
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "TITLE:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
		case strings.HasPrefix(line, "DESCRIPTION:"):
			inBody = true
			if rest := strings.TrimSpace(strings.TrimPrefix(line, "DESCRIPTION:")); rest != "" {
				b.WriteString(rest)
				b.WriteString("\n")
			}
		case inBody:
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return title, strings.TrimSpace(b.String())
}
