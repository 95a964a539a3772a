package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cexll/codeagent/internal/concurrency"
	"github.com/cexll/codeagent/internal/executor"
	"github.com/cexll/codeagent/internal/progress"
	"github.com/cexll/codeagent/internal/web"
)

const toolName = "prompt_on_repo"

// PromptOnRepoParams defines the input parameters for the tool.
type PromptOnRepoParams struct {
	RepoURL string `json:"repo_url" jsonschema:"HTTPS URL of the GitHub repository to change"`
	Prompt  string `json:"prompt" jsonschema:"Natural-language description of the change (10 to 2000 characters)"`
}

// Handler runs prompt_on_repo tool calls.
type Handler struct {
	Runner  web.Runner
	Limiter *concurrency.Manager
}

func registerTools(server *mcp.Server, h *Handler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolName,
		Description: "Apply a change request to a GitHub repository and open a pull request. Returns the progress transcript and the pull request URL.",
	}, h.PromptOnRepo)
}

// PromptOnRepo runs the request to completion and returns its transcript.
// Invalid parameters are protocol errors; failed runs are tool errors.
func (h *Handler) PromptOnRepo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	params PromptOnRepoParams,
) (*mcp.CallToolResult, any, error) {
	log := clog.FromContext(ctx)

	req := web.PromptRequest{RepoURL: strings.TrimSpace(params.RepoURL), Prompt: params.Prompt}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	if h.Limiter != nil {
		release, err := h.Limiter.Acquire(req.RepoURL)
		switch {
		case errors.Is(err, concurrency.ErrCapacity):
			return errorResult("Error: too many runs in progress, try again later"), nil, nil
		case errors.Is(err, concurrency.ErrRepoBusy):
			return errorResult("Error: a run is already in progress for this repository"), nil, nil
		case err != nil:
			return nil, nil, err
		}
		defer release()
	}

	var rec progress.Recorder
	res := h.Runner.Execute(ctx, executor.Request{RepoURL: req.RepoURL, Prompt: req.Prompt}, &rec)
	text := transcript(rec.Events(), res)

	if res.Err != nil {
		log.With("run", res.RunID).Infof("prompt_on_repo failed: %v", res.Err)
		return errorResult(text), nil, nil
	}
	log.With("run", res.RunID).Infof("prompt_on_repo opened %s", res.PR.PRURL)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func transcript(events []progress.Event, res executor.Result) string {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "[%s] %s\n", e.Kind, e.Data())
	}
	if res.PR != nil {
		fmt.Fprintf(&b, "\nPull request: %s\n", res.PR.PRURL)
	}
	return b.String()
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
