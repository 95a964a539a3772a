// Package app assembles the run pipeline from configuration. Both the HTTP
// server and the MCP server build on it.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cexll/codeagent/internal/auth"
	"github.com/cexll/codeagent/internal/concurrency"
	"github.com/cexll/codeagent/internal/config"
	"github.com/cexll/codeagent/internal/costcontrol"
	"github.com/cexll/codeagent/internal/describer"
	"github.com/cexll/codeagent/internal/editor"
	"github.com/cexll/codeagent/internal/executor"
	"github.com/cexll/codeagent/internal/planner"
	"github.com/cexll/codeagent/internal/provider"
	"github.com/cexll/codeagent/internal/taskstore"
	"github.com/cexll/codeagent/internal/vcs"
)

// App holds the long-lived collaborators of a process.
type App struct {
	Config   *config.Config
	Provider provider.Provider
	Executor *executor.Executor
	Store    taskstore.Store
	Limiter  *concurrency.Manager
	Auth     *auth.Service
}

// ProviderConfig maps service configuration onto the provider factory.
func ProviderConfig(cfg *config.Config) *provider.Config {
	return &provider.Config{
		Name:          cfg.Provider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		ClaudeAPIKey:  cfg.ClaudeAPIKey,
		ClaudeModel:   cfg.ClaudeModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		CodexModel:    cfg.CodexModel,
	}
}

// New wires the pipeline around llm. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, llm provider.Provider, store taskstore.Store) (*App, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	llm = provider.Instrument(llm, cfg.LLMTimeout)
	if cfg.LLMDailyCallLimit > 0 || cfg.LLMRunCallLimit > 0 {
		llm = provider.Budget(llm, costcontrol.NewTracker(cfg.LLMDailyCallLimit, cfg.LLMRunCallLimit))
	}

	gateway, err := vcs.New(ctx, vcs.Options{
		Token:      cfg.GitHubToken,
		APIBaseURL: cfg.GitHubAPIURL,
		Timeout:    cfg.VCSTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize VCS gateway: %w", err)
	}

	authService, err := auth.New(auth.Config{
		SecretKey:    cfg.SecretKey,
		Algorithm:    cfg.Algorithm,
		TTL:          cfg.AccessTokenTTL(),
		DemoUsername: cfg.DemoUsername,
		DemoPassword: cfg.DemoPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	exec := executor.New(executor.Config{
		VCS:         gateway,
		Planner:     planner.New(llm, cfg.MaxPlanFiles),
		Editor:      editor.New(llm),
		Describer:   describer.New(llm),
		Store:       store,
		Credentials: cfg.RequireGitHubToken,
	})

	return &App{
		Config:   cfg,
		Provider: llm,
		Executor: exec,
		Store:    store,
		Limiter:  concurrency.NewManager(cfg.MaxConcurrentRuns),
		Auth:     authService,
	}, nil
}

// Close releases the run store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// NewLogger returns the process logger. Output goes to w so stdio
// transports can keep stdout clean.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
