// -- internal/reporting/text.go --
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

// TextReporter renders a workflow state as a human-readable console report.
type TextReporter struct {
	writer io.WriteCloser
}

// NewTextReporter creates a reporter that takes ownership of the writer.
func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

// Write renders the report. It never partially fails: any write error aborts
// the whole render.
func (r *TextReporter) Write(state *schemas.WorkflowState) error {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 64) + "\n")
	b.WriteString("Extension Risk Report\n")
	b.WriteString(strings.Repeat("=", 64) + "\n")
	fmt.Fprintf(&b, "Workflow:  %s\n", state.WorkflowID)
	fmt.Fprintf(&b, "Input:     %s\n", state.InputPath)
	fmt.Fprintf(&b, "Status:    %s\n", state.Status)
	if state.Error != "" {
		fmt.Fprintf(&b, "Error:     %s\n", state.Error)
	}
	if !state.EndTime.IsZero() {
		fmt.Fprintf(&b, "Duration:  %s\n", state.EndTime.Sub(state.StartTime).Round(1e6))
	}

	if m := state.Manifest; m != nil {
		b.WriteString("\n-- Extension --\n")
		fmt.Fprintf(&b, "Name:      %s\n", m.Name)
		fmt.Fprintf(&b, "Version:   %s\n", m.Version)
		fmt.Fprintf(&b, "Manifest:  V%d\n", m.ManifestVersion)
	}

	if results := state.AnalysisResults; results != nil {
		writePermissions(&b, results.Permissions)
		writeReputation(&b, results.Reputation)
		writeStatic(&b, results.Static)
	}

	if s := state.ExecutiveSummary; s != nil {
		b.WriteString("\n-- Executive Summary --\n")
		fmt.Fprintf(&b, "Risk Level: %s\n", strings.ToUpper(s.RiskLevel))
		fmt.Fprintf(&b, "%s\n", s.Summary)
		for _, f := range s.KeyFindings {
			fmt.Fprintf(&b, "  * %s\n", f)
		}
		if len(s.Recommendations) > 0 {
			b.WriteString("Recommendations:\n")
			for _, rec := range s.Recommendations {
				fmt.Fprintf(&b, "  - %s\n", rec)
			}
		}
	}

	_, err := io.WriteString(r.writer, b.String())
	return err
}

func writePermissions(b *strings.Builder, p *schemas.PermissionReport) {
	if p == nil {
		return
	}
	b.WriteString("\n-- Permissions --\n")
	fmt.Fprintf(b, "Declared:  %d", len(p.Declared))
	if len(p.Dangerous) > 0 {
		fmt.Fprintf(b, " (dangerous: %s)", strings.Join(p.Dangerous, ", "))
	}
	b.WriteString("\n")
	if p.HostCritical {
		b.WriteString("Host access covers critical or wildcard origins.\n")
	}

	names := make([]string, 0, len(p.Verdicts))
	for name := range p.Verdicts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := p.Verdicts[name]
		mark := "ok"
		if !v.Reasonable {
			mark = "SUSPECT"
		}
		fmt.Fprintf(b, "  [%s] %s: %s\n", mark, name, v.Reasoning)
	}
	for _, name := range sortedKeys(p.Errors) {
		fmt.Fprintf(b, "  [unjudged] %s: %s\n", name, p.Errors[name])
	}
}

func writeReputation(b *strings.Builder, rep *schemas.ReputationReport) {
	if rep == nil {
		return
	}
	b.WriteString("\n-- Store Listing --\n")
	if rep.Developer != "" {
		fmt.Fprintf(b, "Developer: %s\n", rep.Developer)
	}
	if rep.Users != "" {
		fmt.Fprintf(b, "Users:     %s\n", rep.Users)
	}
	if rep.Rating > 0 {
		fmt.Fprintf(b, "Rating:    %.1f\n", rep.Rating)
	}
}

func writeStatic(b *strings.Builder, s *schemas.StaticReport) {
	if s == nil {
		return
	}
	b.WriteString("\n-- Static Analysis --\n")
	fmt.Fprintf(b, "Files scanned: %d, skipped: %d\n", s.FilesScanned, len(s.Skipped))
	fmt.Fprintf(b, "Findings: %d across %d files\n", s.Stats.TotalFindings, s.Stats.FilesWithFindings)
	for _, sev := range []schemas.Severity{
		schemas.SeverityCritical, schemas.SeverityError,
		schemas.SeverityWarning, schemas.SeverityInfo,
	} {
		if n := s.Stats.BySeverity[sev]; n > 0 {
			fmt.Fprintf(b, "  %-8s %d\n", sev, n)
		}
	}
	for _, f := range s.TopFindings {
		fmt.Fprintf(b, "  [%s] %s:%d %s\n", f.Severity, f.File, f.Line, f.Message)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close releases the underlying writer.
func (r *TextReporter) Close() error {
	return r.writer.Close()
}
