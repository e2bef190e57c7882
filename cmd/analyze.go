// -- cmd/analyze.go --
package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/analyzers"
	"github.com/xkilldash9x/crxtriage/internal/config"
	"github.com/xkilldash9x/crxtriage/internal/crx"
	"github.com/xkilldash9x/crxtriage/internal/llmclient"
	"github.com/xkilldash9x/crxtriage/internal/manifest"
	"github.com/xkilldash9x/crxtriage/internal/observability"
	"github.com/xkilldash9x/crxtriage/internal/reporting"
	"github.com/xkilldash9x/crxtriage/internal/sast"
	"github.com/xkilldash9x/crxtriage/internal/webstore"
	"github.com/xkilldash9x/crxtriage/internal/workflow"
)

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze <store-url or package-file>",
		Short: "Runs the full analysis pipeline against a single extension",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their corresponding Viper keys so command-line
			// flags correctly override values from the config file and
			// environment variables.
			if err := viper.BindPFlag("sast.workers", cmd.Flags().Lookup("workers")); err != nil {
				return err
			}
			if err := viper.BindPFlag("sast.enabled", cmd.Flags().Lookup("scan")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			cfg.Analyze.Input = args[0]
			cfg.Analyze.StateDump, _ = cmd.Flags().GetString("state-dump")

			state := &schemas.WorkflowState{
				WorkflowID: uuid.New().String(),
				InputPath:  cfg.Analyze.Input,
				Status:     schemas.StatusPending,
				StartTime:  time.Now().UTC(),
			}

			logger.Info("Starting analysis",
				zap.String("workflow_id", state.WorkflowID),
				zap.String("input", state.InputPath),
			)

			orch, err := buildOrchestrator(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize pipeline: %w", err)
			}

			final := orch.Run(ctx, state)

			if err := writeReports(final, cfg.Analyze.StateDump); err != nil {
				return err
			}

			if final.Failed() {
				return fmt.Errorf("analysis failed: %s", final.Error)
			}
			return nil
		},
	}

	analyzeCmd.Flags().StringP("state-dump", "o", "", "Write the full workflow state as JSON to this path.")
	analyzeCmd.Flags().Int("workers", 0, "Scanner worker count. (Overrides config/env)")
	analyzeCmd.Flags().Bool("scan", true, "Enable static scanning of extension scripts.")

	return analyzeCmd
}

// buildOrchestrator assembles the pipeline components from the resolved
// configuration. A missing scoring API key degrades the scorer to nil rather
// than failing the run.
func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*workflow.Orchestrator, error) {
	fetcher := webstore.NewFetcher(cfg.Webstore, logger, nil)
	acquirer := crx.NewAcquirer(cfg.Acquirer, logger, nil)
	parser := manifest.New(logger)

	scanner := sast.NewSemgrepScanner(cfg.Sast.RuleSet, logger)
	engine := sast.NewEngine(cfg.Sast, scanner, logger)

	var scorer schemas.RiskScorer
	if client, err := llmclient.NewClient(cfg.LLM, logger, nil); err != nil {
		logger.Warn("Risk scorer unavailable; permission verdicts and summary will be skipped", zap.Error(err))
	} else {
		scorer = client
	}

	permissions := analyzers.NewPermissionAnalyzer(cfg.LLM, scorer, logger)
	scripts := analyzers.NewScriptAnalyzer(engine, logger)
	runner := analyzers.NewRunner(permissions, scripts, logger)

	return workflow.New(fetcher, acquirer, parser, runner, scorer, logger)
}

// writeReports renders the console report and, when requested, the JSON
// state dump. The console report always runs so a failed workflow still
// shows its partial results.
func writeReports(state *schemas.WorkflowState, dumpPath string) error {
	console, err := reporting.New("text", "stdout")
	if err != nil {
		return err
	}
	defer console.Close()
	if err := console.Write(state); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if dumpPath == "" {
		return nil
	}
	dump, err := reporting.New("json", dumpPath)
	if err != nil {
		return err
	}
	defer dump.Close()
	if err := dump.Write(state); err != nil {
		return fmt.Errorf("failed to write state dump: %w", err)
	}
	return nil
}
