// File: api/schemas/workflow.go
// Description: Shared state types for the extension analysis workflow. The
// WorkflowState is the single mutable record threaded through every pipeline
// stage; it is owned exclusively by the orchestrator for the duration of a run.
package schemas

import "time"

// Status represents the lifecycle state of a workflow run. The values are
// lowercase to align with the flat key/value state dumps.
type Status string

// Constants defining the workflow lifecycle states. Status is monotonic: once
// a run is FAILED only the cleanup stage may still execute, and no analytic
// field is mutated afterwards.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// WorkflowState carries everything a pipeline stage may read or write. It is
// passed by pointer; stages mutate it directly and return a routing decision
// which the orchestrator applies.
type WorkflowState struct {
	// WorkflowID is assigned once at creation and never changes.
	WorkflowID string `json:"workflow_id"`

	// InputPath is the original user-supplied locator: either a web store
	// listing URL or a local package path. Immutable after creation.
	InputPath string `json:"input_path"`

	// ExtensionDir is the temporary directory holding the unpacked package.
	// Set by the extraction stage, deleted exactly once by cleanup.
	ExtensionDir string `json:"extension_dir,omitempty"`

	// DownloadedArtifact is the path of a package file the tool itself
	// downloaded. It stays empty when the user supplied a local file, so
	// cleanup never deletes the user's original.
	DownloadedArtifact string `json:"downloaded_artifact,omitempty"`

	// Metadata is the loosely-typed attribute map from the web store
	// listing. Absent is a valid, non-fatal state.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Manifest is the structured descriptor parsed from manifest.json.
	Manifest *Manifest `json:"manifest,omitempty"`

	// AnalysisResults holds the per-analyzer outputs of the analysis stage.
	AnalysisResults *AnalysisResults `json:"analysis_results,omitempty"`

	// ExecutiveSummary is the final risk judgment from the scoring
	// collaborator, or nil when summarization was skipped.
	ExecutiveSummary *ExecutiveSummary `json:"executive_summary,omitempty"`

	Status Status `json:"status"`

	StartTime time.Time `json:"start_time"`
	// EndTime is set exactly once, by cleanup, regardless of outcome.
	EndTime time.Time `json:"end_time"`

	// Error records the first fatal failure verbatim. Soft failures are
	// logged but never recorded here.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the run has already hit its fatal failure.
func (s *WorkflowState) Failed() bool { return s.Status == StatusFailed }

// RecordFailure sets the terminal failure exactly once; later calls are
// ignored so the first root cause is preserved.
func (s *WorkflowState) RecordFailure(msg string) {
	if s.Status == StatusFailed {
		return
	}
	s.Status = StatusFailed
	s.Error = msg
}
