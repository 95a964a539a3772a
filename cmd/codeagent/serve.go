package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/cexll/codeagent/internal/app"
	"github.com/cexll/codeagent/internal/metrics"
	"github.com/cexll/codeagent/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the API server that streams prompt-on-repo runs over Server-Sent Events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, defaultListenServe)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, listen func(string, http.Handler) error) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.Config
	log := clog.FromContext(ctx)
	log.Infof("Starting codeagent server...")
	log.Infof("Provider: %s", cfg.Provider)
	log.Infof("Max concurrent runs: %d, max plan files: %d", cfg.MaxConcurrentRuns, cfg.MaxPlanFiles)
	if cfg.RunStorePath != "" {
		log.Infof("Run store: %s", cfg.RunStorePath)
	}
	if err := cfg.RequireGitHubToken(); err != nil {
		log.Warnf("%v: runs will fail until it is set", err)
	}

	addr := cfg.Addr()
	log.Infof("Server listening on %s", addr)
	log.Infof("Trigger endpoint: http://%s/code/prompt_on_repo", addr)

	if err := listen(addr, newRouter(a)); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

func newRouter(a *app.App) http.Handler {
	r := mux.NewRouter()

	web.NewHandler(web.Options{
		Runner:      a.Executor,
		Limiter:     a.Limiter,
		Store:       a.Store,
		Auth:        a.Auth,
		RequireAuth: a.Config.RequireAuth,
	}).RegisterRoutes(r)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"service":  "codeagent",
			"status":   "running",
			"version":  version,
			"provider": a.Provider.Name(),
		})
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
