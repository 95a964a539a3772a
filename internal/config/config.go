package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// ErrMissingGitHubToken is returned when a run is started without a GitHub token.
var ErrMissingGitHubToken = errors.New("GITHUB_TOKEN is not configured")

// Config holds all configuration for the codeagent service.
// It is built once at startup and passed explicitly; nothing mutates it afterwards.
type Config struct {
	// Server settings
	Host  string `env:"HOST,default=0.0.0.0"`
	Port  int    `env:"PORT,default=8000"`
	Debug bool   `env:"DEBUG,default=false"`

	// GitHub settings
	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubAPIURL string `env:"GITHUB_API_URL"` // Optional: GitHub Enterprise endpoint

	// LLM provider selection: "gemini", "claude" or "codex"
	Provider string `env:"LLM_PROVIDER,default=gemini"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL,default=gemini-1.5-flash"`

	ClaudeAPIKey string `env:"ANTHROPIC_API_KEY"`
	ClaudeModel  string `env:"CLAUDE_MODEL,default=claude-3-5-sonnet-20241022"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"` // Optional: custom API endpoint
	CodexModel    string `env:"CODEX_MODEL,default=gpt-4o"`

	// Auth settings
	SecretKey                string `env:"SECRET_KEY,default=your-secret-key-change-in-production"`
	Algorithm                string `env:"ALGORITHM,default=HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES,default=30"`
	DemoUsername             string `env:"DEMO_USERNAME,default=admin"`
	DemoPassword             string `env:"DEMO_PASSWORD,default=password123"`
	RequireAuth              bool   `env:"REQUIRE_AUTH,default=false"`

	// Run settings
	MaxConcurrentRuns int           `env:"MAX_CONCURRENT_RUNS,default=4"`
	MaxPlanFiles      int           `env:"MAX_PLAN_FILES,default=8"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT,default=2m"`
	VCSTimeout        time.Duration `env:"VCS_TIMEOUT,default=5m"`
	RunStorePath      string        `env:"RUN_STORE_PATH"` // empty keeps run history in memory

	// LLM call budgets; 0 is unlimited
	LLMDailyCallLimit int `env:"LLM_DAILY_CALL_LIMIT,default=0"`
	LLMRunCallLimit   int `env:"LLM_RUN_CALL_LIMIT,default=0"`
}

// Load loads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith loads configuration from the given lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// RequireGitHubToken reports ErrMissingGitHubToken when no token is configured.
func (c *Config) RequireGitHubToken() error {
	if strings.TrimSpace(c.GitHubToken) == "" {
		return ErrMissingGitHubToken
	}
	return nil
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Algorithm = strings.ToUpper(strings.TrimSpace(c.Algorithm))

	if err := c.validateProviderConfig(); err != nil {
		return err
	}
	if err := c.validateAuthConfig(); err != nil {
		return err
	}

	c.applyRunDefaults()
	return c.validateRunConfig()
}

func (c *Config) validateProviderConfig() error {
	switch c.Provider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for gemini provider")
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for claude provider")
		}
	case "codex":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for codex provider")
		}
	default:
		return fmt.Errorf("invalid provider: %s (must be 'gemini', 'claude' or 'codex')", c.Provider)
	}
	return nil
}

func (c *Config) validateAuthConfig() error {
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("invalid ALGORITHM: %s (must be HS256, HS384 or HS512)", c.Algorithm)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be greater than 0")
	}
	return nil
}

func (c *Config) applyRunDefaults() {
	if c.MaxConcurrentRuns <= 0 {
		c.MaxConcurrentRuns = 4
	}
	if c.MaxPlanFiles <= 0 {
		c.MaxPlanFiles = 8
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 2 * time.Minute
	}
	if c.VCSTimeout <= 0 {
		c.VCSTimeout = 5 * time.Minute
	}
}

func (c *Config) validateRunConfig() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.MaxConcurrentRuns > 64 {
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be at most 64")
	}
	if c.LLMDailyCallLimit < 0 || c.LLMRunCallLimit < 0 {
		return fmt.Errorf("LLM call limits must not be negative")
	}
	return nil
}
