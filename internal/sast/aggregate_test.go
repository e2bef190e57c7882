// internal/sast/aggregate_test.go
package sast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

func finding(sev schemas.Severity, file string, line int) schemas.Finding {
	return schemas.Finding{Severity: sev, File: file, Line: line, Message: "m", Category: "security"}
}

func TestAggregate(t *testing.T) {
	perFile := map[string][]schemas.Finding{
		"bg.js": {
			finding(schemas.SeverityCritical, "bg.js", 1),
			finding(schemas.SeverityWarning, "bg.js", 2),
			finding(schemas.Severity("BOGUS"), "bg.js", 3),
		},
		"content.js": {
			finding(schemas.SeverityInfo, "content.js", 9),
		},
		"clean.js": {},
	}

	stats := Aggregate(perFile)

	assert.Equal(t, 4, stats.TotalFindings)
	assert.Equal(t, 2, stats.FilesWithFindings, "a scanned-clean file must not count")
	want := map[schemas.Severity]int{
		schemas.SeverityCritical: 1,
		schemas.SeverityError:    0,
		schemas.SeverityWarning:  2, // one real WARNING plus the unknown severity folded in
		schemas.SeverityInfo:     1,
	}
	assert.Empty(t, cmp.Diff(want, stats.BySeverity))
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(map[string][]schemas.Finding{})
	assert.Equal(t, 0, stats.TotalFindings)
	assert.Equal(t, 0, stats.FilesWithFindings)
	// All known severities are present even when zero.
	assert.Len(t, stats.BySeverity, 4)
}

func TestTopN_SeverityOrderAndBound(t *testing.T) {
	perFile := map[string][]schemas.Finding{
		"a.js": {
			finding(schemas.SeverityWarning, "a.js", 1),
			finding(schemas.SeverityCritical, "a.js", 2),
		},
		"b.js": {
			finding(schemas.SeverityWarning, "b.js", 3),
			finding(schemas.SeverityCritical, "b.js", 4),
			finding(schemas.SeverityCritical, "b.js", 5),
		},
		"c.js": {
			finding(schemas.SeverityWarning, "c.js", 6),
			finding(schemas.SeverityWarning, "c.js", 7),
			finding(schemas.SeverityWarning, "c.js", 8),
		},
	}

	top := TopN(perFile, 4)
	require.Len(t, top, 4)

	// Three criticals first, then the highest-ranked warning.
	for _, f := range top[:3] {
		assert.Equal(t, schemas.SeverityCritical, f.Severity)
	}
	assert.Equal(t, schemas.SeverityWarning, top[3].Severity)
}

func TestTopN_NonPositive(t *testing.T) {
	perFile := map[string][]schemas.Finding{"a.js": {finding(schemas.SeverityCritical, "a.js", 1)}}
	assert.Nil(t, TopN(perFile, 0))
	assert.Nil(t, TopN(perFile, -1))
}

func TestTopN_FewerThanN(t *testing.T) {
	perFile := map[string][]schemas.Finding{"a.js": {finding(schemas.SeverityInfo, "a.js", 1)}}
	assert.Len(t, TopN(perFile, 10), 1)
}

// TestAggregate_OrderIndependence verifies the batch-merge contract: the same
// findings keyed the same way produce identical stats and top findings no
// matter which batches produced them.
func TestAggregate_OrderIndependence(t *testing.T) {
	merged1 := map[string][]schemas.Finding{}
	merged2 := map[string][]schemas.Finding{}

	batchA := map[string][]schemas.Finding{
		"a.js": {finding(schemas.SeverityCritical, "a.js", 1)},
		"b.js": {},
	}
	batchB := map[string][]schemas.Finding{
		"c.js": {finding(schemas.SeverityError, "c.js", 2), finding(schemas.SeverityInfo, "c.js", 3)},
	}

	for k, v := range batchA {
		merged1[k] = v
	}
	for k, v := range batchB {
		merged1[k] = v
	}
	for k, v := range batchB {
		merged2[k] = v
	}
	for k, v := range batchA {
		merged2[k] = v
	}

	assert.Empty(t, cmp.Diff(Aggregate(merged1), Aggregate(merged2)))
	assert.Empty(t, cmp.Diff(TopN(merged1, 10), TopN(merged2, 10)))
}
