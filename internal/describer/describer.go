// Package describer writes pull request titles and bodies.
package describer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cexll/codeagent/internal/planner"
	"github.com/cexll/codeagent/internal/provider"
	"github.com/cexll/codeagent/internal/provider/shared"
	"github.com/chainguard-dev/clog"
)

const (
	titlePrefix    = "AI Agent: "
	maxTitlePrompt = 50
)

const systemPrompt = `You are tasked with creating a professional pull request title and description.

REQUIREMENTS:
1. Title should be concise (50 characters or less) and descriptive
2. Description should be professional and informative
3. Include a summary of changes made
4. Use proper markdown formatting for the description
5. Be specific about what was implemented/fixed/changed

FORMAT YOUR RESPONSE AS:
TITLE: Your pull request title here
DESCRIPTION:
Your detailed description here with proper markdown formatting`

// Description is a pull request title and body.
type Description struct {
	Title string
	Body  string
	// Fallback is set when any part came from the deterministic templates.
	Fallback bool
	// Cause is the call error when the LLM could not be reached.
	Cause error
}

// Describer produces pull request descriptions. It never fails.
type Describer struct {
	llm provider.Provider
}

// New creates a describer backed by llm.
func New(llm provider.Provider) *Describer {
	return &Describer{llm: llm}
}

// Describe asks the LLM for a title and body, filling any missing part from
// deterministic templates.
func (d *Describer) Describe(ctx context.Context, prompt string, plan planner.Plan) Description {
	reply, err := d.llm.Complete(ctx, &provider.Request{
		System:      systemPrompt,
		Prompt:      userMessage(prompt, plan),
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err != nil {
		clog.FromContext(ctx).Warnf("PR description call failed, using fallback: %v", err)
		return Description{
			Title:    FallbackTitle(prompt),
			Body:     minimalBody(prompt, plan),
			Fallback: true,
			Cause:    err,
		}
	}

	title, body := shared.ParseTitleDescription(reply)
	desc := Description{Title: title, Body: body}
	if desc.Title == "" {
		desc.Title = FallbackTitle(prompt)
		desc.Fallback = true
	}
	if desc.Body == "" {
		desc.Body = FallbackBody(prompt, plan)
		desc.Fallback = true
	}
	return desc
}

// FallbackTitle prefixes the first 50 characters of the prompt, adding an
// ellipsis when the prompt was cut.
func FallbackTitle(prompt string) string {
	return titlePrefix + Truncate(strings.TrimSpace(prompt), maxTitlePrompt)
}

// Truncate cuts s to n characters, appending "..." when anything was dropped.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// FallbackBody renders a Markdown body listing the planned files.
func FallbackBody(prompt string, plan planner.Plan) string {
	var b strings.Builder
	b.WriteString("## AI-Generated Changes\n\n")
	b.WriteString("This pull request was created by an AI coding agent based on the following request:\n\n")
	fmt.Fprintf(&b, "> %s\n\n", prompt)
	b.WriteString("### Changes Summary\n\n")
	fmt.Fprintf(&b, "%s\n\n", changeSummary(plan))
	b.WriteString("### Files Modified\n\n")
	for _, f := range plan.Edit {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	for _, f := range plan.Create {
		fmt.Fprintf(&b, "- `%s` (new)\n", f)
	}
	for _, f := range plan.Delete {
		fmt.Fprintf(&b, "- `%s` (deleted)\n", f)
	}
	b.WriteString("\n### Notes\n\n")
	b.WriteString("- This PR was generated automatically by an AI agent\n")
	b.WriteString("- Please review all changes carefully before merging\n")
	b.WriteString("- Test the changes in your development environment\n")
	return b.String()
}

func minimalBody(prompt string, plan planner.Plan) string {
	return fmt.Sprintf("## AI-Generated Changes\n\nThis pull request was created by an AI coding agent.\n\n"+
		"**Original Request:** %s\n\n**Changes:** %s\n\nPlease review all changes carefully before merging.",
		prompt, changeSummary(plan))
}

func changeSummary(plan planner.Plan) string {
	var parts []string
	if n := len(plan.Edit); n > 0 {
		parts = append(parts, fmt.Sprintf("Modified %d existing files", n))
	}
	if n := len(plan.Create); n > 0 {
		parts = append(parts, fmt.Sprintf("Created %d new files", n))
	}
	if n := len(plan.Delete); n > 0 {
		parts = append(parts, fmt.Sprintf("Deleted %d files", n))
	}
	if len(parts) == 0 {
		return "Various file modifications"
	}
	return strings.Join(parts, " | ")
}

func orNone(files []string) string {
	if len(files) == 0 {
		return "None"
	}
	return strings.Join(files, ", ")
}

func userMessage(prompt string, plan planner.Plan) string {
	return fmt.Sprintf(`Generate a professional pull request title and description for these changes:

ORIGINAL REQUEST: %s

CHANGES MADE:
%s

FILES AFFECTED:
- Edited: %s
- Created: %s
- Deleted: %s`,
		prompt, changeSummary(plan), orNone(plan.Edit), orNone(plan.Create), orNone(plan.Delete))
}
