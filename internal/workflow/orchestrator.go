// File: internal/workflow/orchestrator.go
// Description: The pipeline state machine. Stages are dispatched through a
// closed transition table; every path, including panics and unknown stages,
// funnels into the cleanup stage before the run terminates.
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

// Analyzer is the analysis-stage collaborator. Defined locally so the
// orchestrator can be tested with a fake without dragging in the scanning
// subsystem.
type Analyzer interface {
	Analyze(ctx context.Context, m *schemas.Manifest, extensionDir string, metadata map[string]any) (*schemas.AnalysisResults, error)
}

// handlerFunc executes one stage against the state and returns the next
// stage identifier.
type handlerFunc func(ctx context.Context, state *schemas.WorkflowState) Stage

// Orchestrator sequences the analysis pipeline over a single WorkflowState,
// which it owns exclusively for the duration of Run. Execution is strictly
// sequential; concurrency lives inside individual stages.
type Orchestrator struct {
	fetcher  schemas.MetadataFetcher
	acquirer schemas.PackageAcquirer
	parser   schemas.ManifestParser
	analyzer Analyzer
	scorer   schemas.RiskScorer
	logger   *zap.Logger

	handlers map[Stage]handlerFunc
}

// New creates an Orchestrator. The acquirer, parser, and analyzer are
// required; fetcher and scorer may be nil, in which case the metadata and
// summary stages degrade to their non-fatal skip behavior.
func New(
	fetcher schemas.MetadataFetcher,
	acquirer schemas.PackageAcquirer,
	parser schemas.ManifestParser,
	analyzer Analyzer,
	scorer schemas.RiskScorer,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if acquirer == nil || parser == nil || analyzer == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}

	o := &Orchestrator{
		fetcher:  fetcher,
		acquirer: acquirer,
		parser:   parser,
		analyzer: analyzer,
		scorer:   scorer,
		logger:   logger.Named("workflow"),
	}
	o.handlers = map[Stage]handlerFunc{
		StageRouting:    o.routingStage,
		StageMetadata:   o.metadataStage,
		StageExtraction: o.extractionStage,
		StageManifest:   o.manifestStage,
		StageAnalysis:   o.analysisStage,
		StageSummary:    o.summaryStage,
		StageCleanup:    o.cleanupStage,
	}
	return o, nil
}

// Run drives the state machine from routing to termination and returns the
// finalized state. Cleanup is guaranteed to run exactly once on every path;
// it is the only stage that sets EndTime and releases temporary resources.
func (o *Orchestrator) Run(ctx context.Context, state *schemas.WorkflowState) *schemas.WorkflowState {
	logger := o.logger.With(zap.String("workflow_id", state.WorkflowID))
	logger.Info("Workflow starting", zap.String("input", state.InputPath))

	if state.Status == schemas.StatusPending {
		state.Status = schemas.StatusRunning
	}

	cleaned := false
	for stage := StageRouting; stage != StageDone; {
		if stage == StageCleanup {
			cleaned = true
		}
		logger.Debug("Entering stage", zap.Stringer("stage", stage))
		stage = o.runStage(ctx, stage, state, logger)
	}
	if !cleaned {
		// A handler routed straight to the terminal marker. Cleanup still
		// owns resource release and finalization, so force it through.
		o.runStage(ctx, StageCleanup, state, logger)
	}

	logger.Info("Workflow finished",
		zap.String("status", string(state.Status)),
		zap.String("error", state.Error),
	)
	return state
}

// runStage dispatches one stage with a panic guard: an escaping panic is the
// first (and only) fatal failure of the run and routes to cleanup rather than
// unwinding past the orchestrator.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, state *schemas.WorkflowState, logger *zap.Logger) (next Stage) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Stage panicked", zap.Stringer("stage", stage), zap.Any("panic", r))
			state.RecordFailure(fmt.Sprintf("stage %s panicked: %v", stage, r))
			if stage == StageCleanup {
				// Cleanup itself panicked; nothing left to route to.
				next = StageDone
				return
			}
			next = StageCleanup
		}
	}()

	handler, ok := o.handlers[stage]
	if !ok {
		state.RecordFailure(fmt.Sprintf("no handler for stage %q", stage))
		return StageCleanup
	}
	return handler(ctx, state)
}
