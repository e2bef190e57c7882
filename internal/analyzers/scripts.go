// File: internal/analyzers/scripts.go
package analyzers

import (
	"context"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/sast"
)

// ScriptAnalyzer scans the JavaScript files the manifest references through
// the static-analysis engine.
type ScriptAnalyzer struct {
	engine *sast.Engine
	logger *zap.Logger
}

// NewScriptAnalyzer creates the analyzer around a scanning engine.
func NewScriptAnalyzer(engine *sast.Engine, logger *zap.Logger) *ScriptAnalyzer {
	return &ScriptAnalyzer{
		engine: engine,
		logger: logger.Named("scripts"),
	}
}

// Analyze collects the manifest's script files and runs them through the
// filter, partition, execute, aggregate chain. The error return covers tool
// absence; the caller decides whether that is fatal.
func (a *ScriptAnalyzer) Analyze(ctx context.Context, m *schemas.Manifest, extensionDir string) (*schemas.StaticReport, error) {
	candidates := make([]string, 0, len(m.ScriptFiles()))
	for _, rel := range m.ScriptFiles() {
		candidates = append(candidates, filepath.Join(extensionDir, filepath.FromSlash(rel)))
	}
	sort.Strings(candidates)

	a.logger.Info("Collected script files from manifest", zap.Int("count", len(candidates)))
	return a.engine.Run(ctx, candidates, extensionDir)
}
