// File: api/schemas/findings.go
package schemas

// Severity is the severity level reported by the static analysis tool.
type Severity string

// Severity levels, ordered from most to least severe. Tools occasionally emit
// levels outside this set; NormalizeSeverity folds those into WARNING.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// severityRank orders severities for sorting; lower sorts first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityError:    1,
	SeverityWarning:  2,
	SeverityInfo:     3,
}

// NormalizeSeverity maps an arbitrary tool-reported severity onto the closed
// set above. Unknown values become WARNING so they are neither hidden nor
// over-counted as critical.
func NormalizeSeverity(raw string) Severity {
	s := Severity(raw)
	if _, ok := severityRank[s]; ok {
		return s
	}
	return SeverityWarning
}

// Rank returns the sort rank of a severity. Unrecognized severities rank
// below INFO so they never displace known findings.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Finding is a single static-analysis result tied to a file and line. File is
// always relative to the extracted package root, regardless of which scanning
// strategy produced it, so aggregation is order-independent.
type Finding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Category string   `json:"category"`
}
