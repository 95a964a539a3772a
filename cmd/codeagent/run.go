package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cexll/codeagent/internal/executor"
	"github.com/cexll/codeagent/internal/progress"
	"github.com/cexll/codeagent/internal/web"
)

var (
	runRepo   string
	runPrompt string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one change request and print its events",
	Long: `Run a prompt-on-repo request in-process, printing each event as it arrives.

  codeagent run --repo https://github.com/owner/repo --prompt "add input validation to the signup handler"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		req := web.PromptRequest{RepoURL: runRepo, Prompt: runPrompt}
		if err := req.Validate(); err != nil {
			return err
		}

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.Executor.Execute(ctx, executor.Request{RepoURL: req.RepoURL, Prompt: req.Prompt}, printer(cmd.OutOrStdout()))
		if res.Err != nil {
			return fmt.Errorf("run %s failed: %w", res.RunID, res.Err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runRepo, "repo", "", "repository URL (https://github.com/owner/repo)")
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "change request")
	_ = runCmd.MarkFlagRequired("repo")
	_ = runCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(runCmd)
}

// printer writes one "[kind] data" line per event.
func printer(w io.Writer) progress.Sink {
	return progress.SinkFunc(func(e progress.Event) {
		fmt.Fprintf(w, "[%s] %s\n", e.Kind, e.Data())
	})
}
