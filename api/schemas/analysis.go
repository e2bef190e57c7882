// File: api/schemas/analysis.go
package schemas

// AnalysisResults bundles the outputs of the independent sub-analyzers run by
// the analysis stage. Any of the fields may be nil when the corresponding
// analyzer was skipped or soft-failed; downstream consumers treat nil as
// "reduced detail", never as an error.
type AnalysisResults struct {
	Permissions *PermissionReport `json:"permissions,omitempty"`
	Reputation  *ReputationReport `json:"reputation,omitempty"`
	Static      *StaticReport     `json:"static,omitempty"`
}

// PermissionVerdict is a single per-permission risk judgment from the scoring
// collaborator.
type PermissionVerdict struct {
	Permission string `json:"permission"`
	Reasonable bool   `json:"reasonable"`
	Reasoning  string `json:"reasoning"`
}

// PermissionReport summarizes the permission surface of a package. Verdicts
// and Errors are keyed by permission name; a failed query lands in Errors and
// is never silently dropped.
type PermissionReport struct {
	Declared     []string                     `json:"declared"`
	Dangerous    []string                     `json:"dangerous,omitempty"`
	Verdicts     map[string]PermissionVerdict `json:"verdicts,omitempty"`
	Errors       map[string]string            `json:"errors,omitempty"`
	HostScreen   []string                     `json:"host_screen,omitempty"`
	HostCritical bool                         `json:"host_critical"`
}

// ReputationReport carries the store-listing signals relevant to risk
// scoring. All fields are best-effort; zero values mean "unknown".
type ReputationReport struct {
	Title     string  `json:"title,omitempty"`
	Developer string  `json:"developer,omitempty"`
	Users     string  `json:"users,omitempty"`
	Rating    float64 `json:"rating,omitempty"`
}

// SkippedFile records a candidate excluded from scanning and why, so that
// filtering is observable rather than silent.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// ScanStats are the aggregate numbers over a per-file finding map.
type ScanStats struct {
	TotalFindings     int              `json:"total_findings"`
	BySeverity        map[Severity]int `json:"by_severity"`
	FilesWithFindings int              `json:"files_with_findings"`
}

// StaticReport is the output of the static-analysis subsystem. Findings is
// keyed by package-relative path; a file scanned clean keeps an entry with an
// empty list so "scanned but clean" stays distinguishable from "not scanned".
type StaticReport struct {
	Findings     map[string][]Finding `json:"findings"`
	Stats        ScanStats            `json:"stats"`
	Skipped      []SkippedFile        `json:"skipped,omitempty"`
	FilesScanned int                  `json:"files_scanned"`
	TopFindings  []Finding            `json:"top_findings,omitempty"`
}

// ExecutiveSummary is the final judgment returned by the risk-scoring
// collaborator.
type ExecutiveSummary struct {
	RiskLevel       string   `json:"risk_level"`
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"key_findings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// RiskFacts is the input contract of the risk-scoring collaborator: the
// extracted facts the model is asked to judge, and nothing else.
type RiskFacts struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Permissions *PermissionReport `json:"permissions,omitempty"`
	Reputation  *ReputationReport `json:"reputation,omitempty"`
	ScanStats   *ScanStats        `json:"scan_stats,omitempty"`
	TopFindings []Finding         `json:"top_findings,omitempty"`
}
