// mcp-server exposes the prompt-on-repo workflow as an MCP tool over stdio.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cexll/codeagent/internal/app"
	"github.com/cexll/codeagent/internal/config"
	"github.com/cexll/codeagent/internal/provider"
	"github.com/cexll/codeagent/internal/taskstore"
)

func main() {
	// stdout carries the protocol; everything else goes to stderr.
	log.SetOutput(os.Stderr)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("[MCP Server] Failed to load configuration: %v", err)
	}
	slog.SetDefault(app.NewLogger(os.Stderr, cfg.Debug))

	llm, err := provider.NewProvider(ctx, app.ProviderConfig(cfg))
	if err != nil {
		log.Fatalf("[MCP Server] Failed to initialize AI provider: %v", err)
	}
	store, err := taskstore.Open(cfg.RunStorePath)
	if err != nil {
		log.Fatalf("[MCP Server] Failed to open run store: %v", err)
	}
	a, err := app.New(ctx, cfg, llm, store)
	if err != nil {
		log.Fatalf("[MCP Server] %v", err)
	}
	defer a.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codeagent",
		Version: "v1.0.0",
	}, nil)
	registerTools(server, &Handler{Runner: a.Executor, Limiter: a.Limiter})
	log.Printf("[MCP Server] Registered tool: %s (provider %s)", toolName, a.Provider.Name())

	log.Println("[MCP Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatalf("[MCP Server] Server error: %v", err)
	}
	log.Println("[MCP Server] Server stopped gracefully")
}
