// File: internal/workflow/stage.go
package workflow

// Stage identifies one unit of pipeline work. The orchestrator's dispatch
// table maps each stage to its handler; handlers return the next stage (or
// StageDone) alongside their mutations of the workflow state.
type Stage int

const (
	// StageRouting classifies the input locator and picks the entry path.
	StageRouting Stage = iota
	// StageMetadata fetches the store-listing attribute map (soft-failing).
	StageMetadata
	// StageExtraction downloads or copies the package and unpacks it.
	StageExtraction
	// StageManifest parses manifest.json from the unpacked directory.
	StageManifest
	// StageAnalysis runs the sub-analyzers, including the scanning subsystem.
	StageAnalysis
	// StageSummary asks the risk scorer for the executive summary.
	StageSummary
	// StageCleanup releases temporary resources and finalizes the run. It is
	// reached on every path, success or failure.
	StageCleanup
	// StageDone is the terminal marker; it has no handler.
	StageDone
)

var stageNames = map[Stage]string{
	StageRouting:    "routing",
	StageMetadata:   "metadata",
	StageExtraction: "extraction",
	StageManifest:   "manifest",
	StageAnalysis:   "analysis",
	StageSummary:    "summary",
	StageCleanup:    "cleanup",
	StageDone:       "done",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}
