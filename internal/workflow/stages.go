// File: internal/workflow/stages.go
// Description: The stage handlers. Each is fatal-or-forward: success advances
// to the next named stage, a fatal failure records the first root cause and
// jumps to cleanup. Soft failures (metadata, individual batch or permission
// queries) are logged and never touch Status or Error.
package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/analyzers"
	"github.com/xkilldash9x/crxtriage/internal/crx"
)

// routingStage classifies the input locator. Remote listings go through the
// metadata path; recognized local packages go straight to extraction; anything
// else is a classification failure with no resources to clean.
func (o *Orchestrator) routingStage(_ context.Context, state *schemas.WorkflowState) Stage {
	if state.InputPath == "" {
		state.RecordFailure("no input locator provided")
		return StageCleanup
	}
	if crx.IsStoreURL(state.InputPath) {
		return StageMetadata
	}
	if crx.IsLocalPackage(state.InputPath) {
		return StageExtraction
	}
	state.RecordFailure(fmt.Sprintf("input %q is not a web store URL or local package file", state.InputPath))
	return StageCleanup
}

// metadataStage fetches the listing attribute map. Failure here is soft: it
// is logged but neither Status nor Error changes, and extraction proceeds
// with nil metadata.
func (o *Orchestrator) metadataStage(ctx context.Context, state *schemas.WorkflowState) Stage {
	if o.fetcher == nil {
		o.logger.Info("No metadata fetcher configured; skipping")
		return StageExtraction
	}

	meta, err := o.fetcher.Fetch(ctx, state.InputPath)
	if err != nil {
		o.logger.Warn("Metadata fetch failed; proceeding without metadata", zap.Error(err))
		return StageExtraction
	}
	state.Metadata = meta
	return StageExtraction
}

// extractionStage downloads or copies the package and unpacks it. The
// downloaded artifact path is recorded only when the tool performed the
// download, so cleanup never deletes a user-supplied file.
func (o *Orchestrator) extractionStage(ctx context.Context, state *schemas.WorkflowState) Stage {
	pkg, err := o.acquirer.Acquire(ctx, state.InputPath)
	if pkg != nil {
		// Record whatever landed on disk even on failure, so cleanup can
		// release it.
		state.ExtensionDir = pkg.Dir
		state.DownloadedArtifact = pkg.ArtifactPath
	}
	if err != nil {
		state.RecordFailure(err.Error())
		return StageCleanup
	}
	return StageManifest
}

// manifestStage parses the descriptor out of the extracted directory.
func (o *Orchestrator) manifestStage(_ context.Context, state *schemas.WorkflowState) Stage {
	if state.ExtensionDir == "" {
		state.RecordFailure("no extension directory available for manifest parsing")
		return StageCleanup
	}

	m, err := o.parser.Parse(state.ExtensionDir)
	if err != nil {
		state.RecordFailure(err.Error())
		return StageCleanup
	}
	state.Manifest = m
	return StageAnalysis
}

// analysisStage runs the sub-analyzers, including the scanning subsystem.
func (o *Orchestrator) analysisStage(ctx context.Context, state *schemas.WorkflowState) Stage {
	if state.ExtensionDir == "" || state.Manifest == nil {
		state.RecordFailure("analysis requires an extension directory and a parsed manifest")
		return StageCleanup
	}

	results, err := o.analyzer.Analyze(ctx, state.Manifest, state.ExtensionDir, state.Metadata)
	if err != nil {
		state.RecordFailure(err.Error())
		return StageCleanup
	}
	state.AnalysisResults = results
	return StageSummary
}

// summaryStage asks the risk scorer for the executive summary. Missing
// analysis results or a missing scorer skip the stage non-fatally; a scorer
// error is fatal.
func (o *Orchestrator) summaryStage(ctx context.Context, state *schemas.WorkflowState) Stage {
	if state.AnalysisResults == nil {
		o.logger.Warn("No analysis results available; skipping summary")
		return StageCleanup
	}
	if o.scorer == nil {
		o.logger.Warn("No risk scorer configured; skipping summary")
		return StageCleanup
	}

	facts := analyzers.Facts(state.Manifest, state.AnalysisResults)
	summary, err := o.scorer.Judge(ctx, facts)
	if err != nil {
		state.RecordFailure(err.Error())
		return StageCleanup
	}
	state.ExecutiveSummary = summary
	return StageCleanup
}

// cleanupStage releases temporary resources and finalizes the run. It has no
// failure branch: deletion errors are collected as warnings and never change
// the outcome in either direction. EndTime is set here, exactly once, on
// every path.
func (o *Orchestrator) cleanupStage(_ context.Context, state *schemas.WorkflowState) Stage {
	var warnings []string

	if state.ExtensionDir != "" {
		o.logger.Info("Removing extraction directory", zap.String("dir", state.ExtensionDir))
		if err := os.RemoveAll(state.ExtensionDir); err != nil {
			warnings = append(warnings, fmt.Sprintf("removing extraction dir: %v", err))
		}
	}
	if state.DownloadedArtifact != "" {
		o.logger.Info("Removing downloaded artifact", zap.String("path", state.DownloadedArtifact))
		if err := os.Remove(state.DownloadedArtifact); err != nil && !os.IsNotExist(err) {
			warnings = append(warnings, fmt.Sprintf("removing downloaded artifact: %v", err))
		}
	}

	for _, w := range warnings {
		o.logger.Warn("Cleanup warning", zap.String("warning", w))
	}

	if !state.Failed() {
		state.Status = schemas.StatusCompleted
	}
	if state.EndTime.IsZero() {
		state.EndTime = time.Now().UTC()
	}
	return StageDone
}
