// File: internal/analyzers/runner.go
// Description: Composes the independent sub-analyzers into the analysis
// stage's output. Sub-analyzer soft failures reduce detail; only context
// cancellation aborts the run.
package analyzers

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/sast"
)

// Runner runs every sub-analyzer over an extracted extension.
type Runner struct {
	permissions *PermissionAnalyzer
	scripts     *ScriptAnalyzer
	logger      *zap.Logger
}

// NewRunner creates the analysis runner.
func NewRunner(permissions *PermissionAnalyzer, scripts *ScriptAnalyzer, logger *zap.Logger) *Runner {
	return &Runner{
		permissions: permissions,
		scripts:     scripts,
		logger:      logger.Named("analysis"),
	}
}

// Analyze produces the combined AnalysisResults. The static scan tolerates
// tool absence as a soft failure; any other scan error is fatal to the stage.
func (r *Runner) Analyze(ctx context.Context, m *schemas.Manifest, extensionDir string, metadata map[string]any) (*schemas.AnalysisResults, error) {
	results := &schemas.AnalysisResults{
		Permissions: r.permissions.Analyze(ctx, m),
		Reputation:  Reputation(metadata),
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	static, err := r.scripts.Analyze(ctx, m, extensionDir)
	switch {
	case errors.Is(err, sast.ErrToolUnavailable):
		r.logger.Warn("Static analysis skipped", zap.Error(err))
	case err != nil:
		return nil, err
	default:
		results.Static = static
	}

	return results, nil
}

// Facts assembles the fact sheet handed to the risk-scoring collaborator from
// the manifest and analysis results.
func Facts(m *schemas.Manifest, results *schemas.AnalysisResults) schemas.RiskFacts {
	facts := schemas.RiskFacts{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
	}
	if results == nil {
		return facts
	}
	facts.Permissions = results.Permissions
	facts.Reputation = results.Reputation
	if results.Static != nil {
		stats := results.Static.Stats
		facts.ScanStats = &stats
		facts.TopFindings = results.Static.TopFindings
	}
	return facts
}
