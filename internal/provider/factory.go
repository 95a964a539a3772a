package provider

import (
	"context"
	"fmt"

	"github.com/cexll/codeagent/internal/provider/claude"
	"github.com/cexll/codeagent/internal/provider/codex"
	"github.com/cexll/codeagent/internal/provider/gemini"
)

// Config contains provider configuration
type Config struct {
	// Provider name: "gemini", "claude", "codex"
	Name string

	// Gemini configuration
	GeminiAPIKey string
	GeminiModel  string

	// Claude configuration
	ClaudeAPIKey string
	ClaudeModel  string

	// Codex configuration (OpenAI-compatible endpoint)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	CodexModel    string
}

// NewProvider creates a provider based on configuration
func NewProvider(ctx context.Context, cfg *Config) (Provider, error) {
	switch cfg.Name {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: GEMINI_API_KEY is required")
		}
		model := cfg.GeminiModel
		if model == "" {
			model = gemini.DefaultModel
		}
		return gemini.NewProvider(ctx, cfg.GeminiAPIKey, model, "")

	case "claude":
		if cfg.ClaudeAPIKey == "" {
			return nil, fmt.Errorf("claude: ANTHROPIC_API_KEY is required")
		}
		model := cfg.ClaudeModel
		if model == "" {
			model = claude.DefaultModel
		}
		return claude.NewProvider(cfg.ClaudeAPIKey, model, ""), nil

	case "codex":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("codex: OPENAI_API_KEY is required")
		}
		model := cfg.CodexModel
		if model == "" {
			model = codex.DefaultModel
		}
		return codex.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: gemini, claude, codex)", cfg.Name)
	}
}
