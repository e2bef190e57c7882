// File: internal/sast/aggregate.go
package sast

import (
	"sort"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

// Aggregate computes totals over a per-file finding map: overall count,
// per-severity counts (unknown severities folded into WARNING), and the
// number of files with at least one finding. The result is independent of the
// order in which findings were produced.
func Aggregate(perFile map[string][]schemas.Finding) schemas.ScanStats {
	stats := schemas.ScanStats{
		BySeverity: map[schemas.Severity]int{
			schemas.SeverityCritical: 0,
			schemas.SeverityError:    0,
			schemas.SeverityWarning:  0,
			schemas.SeverityInfo:     0,
		},
	}

	for _, findings := range perFile {
		if len(findings) > 0 {
			stats.FilesWithFindings++
		}
		for _, f := range findings {
			stats.TotalFindings++
			stats.BySeverity[schemas.NormalizeSeverity(string(f.Severity))]++
		}
	}
	return stats
}

// TopN flattens the per-file findings, sorts them by severity rank (stable,
// so same-severity findings keep their relative order), and returns the first
// n. Files are visited in sorted key order so the result is deterministic.
func TopN(perFile map[string][]schemas.Finding, n int) []schemas.Finding {
	if n <= 0 {
		return nil
	}

	keys := make([]string, 0, len(perFile))
	for k := range perFile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var flat []schemas.Finding
	for _, k := range keys {
		flat = append(flat, perFile[k]...)
	}

	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].Severity.Rank() < flat[j].Severity.Rank()
	})

	if len(flat) > n {
		flat = flat[:n]
	}
	return flat
}
