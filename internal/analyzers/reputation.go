// File: internal/analyzers/reputation.go
package analyzers

import "github.com/xkilldash9x/crxtriage/api/schemas"

// Reputation derives store-listing signals from the loosely-typed metadata
// map. A nil or empty map yields a nil report; everything here is
// best-effort.
func Reputation(metadata map[string]any) *schemas.ReputationReport {
	if len(metadata) == 0 {
		return nil
	}

	report := &schemas.ReputationReport{}
	if v, ok := metadata["title"].(string); ok {
		report.Title = v
	}
	if v, ok := metadata["developer"].(string); ok {
		report.Developer = v
	}
	if v, ok := metadata["users"].(string); ok {
		report.Users = v
	}
	switch v := metadata["rating"].(type) {
	case float64:
		report.Rating = v
	case int:
		report.Rating = float64(v)
	}

	if (schemas.ReputationReport{}) == *report {
		return nil
	}
	return report
}
