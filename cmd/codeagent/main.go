// codeagent turns a natural-language change request against a GitHub
// repository into a pull request, streaming progress as it goes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cexll/codeagent/internal/app"
	"github.com/cexll/codeagent/internal/config"
	"github.com/cexll/codeagent/internal/provider"
	"github.com/cexll/codeagent/internal/taskstore"
)

var version = "dev"

var (
	loadDotEnv         = godotenv.Load
	loadConfig         = config.Load
	newProvider        = provider.NewProvider
	openStore          = taskstore.Open
	defaultListenServe = http.ListenAndServe
)

var rootCmd = &cobra.Command{
	Use:   "codeagent",
	Short: "codeagent - prompt on repo, get a PR",
	Long: `codeagent applies a natural-language change request to a GitHub repository
and opens a pull request with the result.

  codeagent serve                                   Start the HTTP server
  codeagent run --repo URL --prompt "add a README"  Run one request locally`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and assembles the application.
func setup(ctx context.Context) (*app.App, error) {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg.Debug))

	llm, err := newProvider(ctx, app.ProviderConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	store, err := openStore(cfg.RunStorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	a, err := app.New(ctx, cfg, llm, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}
