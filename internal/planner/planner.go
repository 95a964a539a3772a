package planner

import (
	"context"
	"fmt"

	"github.com/cexll/codeagent/internal/provider"
	"github.com/cexll/codeagent/internal/snapshot"
	"github.com/chainguard-dev/clog"
)

const systemPrompt = `You are an expert software engineer analyzing a repository structure to plan code changes.

Your task is to analyze the user's request and the repository structure, then return a JSON object specifying exactly which files need to be modified.

IMPORTANT RULES:
1. Return ONLY a valid JSON object, no other text
2. Use relative paths from the repository root
3. Be conservative - only include files that definitely need changes
4. Focus on the most important files that directly address the user's request
5. Limit changes to a maximum of 5-8 files to keep the scope manageable
6. Consider the existing codebase structure and patterns

JSON Format:
{
  "edit": ["path/to/existing/file1.py", "path/to/existing/file2.js"],
  "create": ["path/to/new/file3.py"],
  "delete": ["path/to/obsolete/file4.py"]
}`

// Result is a plan together with how it was obtained.
type Result struct {
	Plan Plan
	Tier Tier
	// Cause is the call or parse error that forced a heuristic or empty plan.
	Cause error
}

// Planner asks an LLM which files a change request touches.
type Planner struct {
	llm      provider.Provider
	maxFiles int
}

// New creates a planner capping plans at maxFiles (DefaultMaxFiles when <= 0).
func New(llm provider.Provider, maxFiles int) *Planner {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Planner{llm: llm, maxFiles: maxFiles}
}

// Plan makes one LLM call and always yields a plan. The only error returned is
// the context's, when it ends before or during the call.
func (p *Planner) Plan(ctx context.Context, prompt, report string) (Result, error) {
	log := clog.FromContext(ctx)

	reply, err := p.llm.Complete(ctx, &provider.Request{
		System:      systemPrompt,
		Prompt:      userMessage(prompt, report),
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("planning changes: %w", ctxErr)
		}
		return p.fallback(ctx, prompt, fmt.Errorf("planning call failed: %w", err)), nil
	}

	plan, tier, err := Parse(reply)
	if err != nil {
		log.Warnf("could not parse plan reply (%d chars): %v", len(reply), err)
		return p.fallback(ctx, prompt, err), nil
	}

	return Result{Plan: Cap(plan.normalized(), p.maxFiles), Tier: tier}, nil
}

func (p *Planner) fallback(ctx context.Context, prompt string, cause error) Result {
	plan, tier := Heuristic(prompt)
	clog.FromContext(ctx).With("tier", string(tier)).Infof("using fallback plan: %v", cause)
	return Result{Plan: Cap(plan.normalized(), p.maxFiles), Tier: tier, Cause: cause}
}

func userMessage(prompt, report string) string {
	return fmt.Sprintf(`USER REQUEST: %s

PROJECT: %s

REPOSITORY STRUCTURE:
%s

Analyze this request and repository structure. Return a JSON object specifying which files to edit, create, or delete.`,
		prompt, snapshot.DetectProject(report), report)
}
