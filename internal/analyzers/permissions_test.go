// internal/analyzers/permissions_test.go
package analyzers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/config"
)

// fakeScorer answers permission queries from a canned table.
type fakeScorer struct {
	calls        atomic.Int32
	failFor      string
	unreasonable map[string]bool
}

func (f *fakeScorer) Judge(ctx context.Context, facts schemas.RiskFacts) (*schemas.ExecutiveSummary, error) {
	return &schemas.ExecutiveSummary{RiskLevel: "low", Summary: "ok"}, nil
}

func (f *fakeScorer) JudgePermission(ctx context.Context, name, description, permission string) (*schemas.PermissionVerdict, error) {
	f.calls.Add(1)
	if permission == f.failFor {
		return nil, errors.New("model endpoint error 429: quota")
	}
	return &schemas.PermissionVerdict{
		Permission: permission,
		Reasonable: !f.unreasonable[permission],
		Reasoning:  "canned",
	}, nil
}

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{RateLimit: 1000, Burst: 4}
}

func TestPermissionAnalyzer_FullReport(t *testing.T) {
	scorer := &fakeScorer{unreasonable: map[string]bool{"debugger": true}}
	a := NewPermissionAnalyzer(testLLMConfig(), scorer, zap.NewNop())

	m := &schemas.Manifest{
		Name:            "Tab Saver",
		Permissions:     []string{"tabs", "storage", "debugger"},
		HostPermissions: []string{"https://example.com/*"},
	}
	report := a.Analyze(context.Background(), m)

	assert.Equal(t, []string{"tabs", "storage", "debugger"}, report.Declared)
	assert.Equal(t, []string{"debugger"}, report.Dangerous)
	assert.Equal(t, int32(3), scorer.calls.Load(), "one query per declared permission")

	require.Len(t, report.Verdicts, 3)
	assert.True(t, report.Verdicts["tabs"].Reasonable)
	assert.False(t, report.Verdicts["debugger"].Reasonable)
	assert.Nil(t, report.Errors)
	assert.False(t, report.HostCritical)
}

func TestPermissionAnalyzer_QueryFailureIsContained(t *testing.T) {
	scorer := &fakeScorer{failFor: "storage"}
	a := NewPermissionAnalyzer(testLLMConfig(), scorer, zap.NewNop())

	m := &schemas.Manifest{
		Name:        "x",
		Permissions: []string{"tabs", "storage", "cookies"},
	}
	report := a.Analyze(context.Background(), m)

	// The failed permission lands in Errors; its siblings still complete.
	require.Len(t, report.Verdicts, 2)
	assert.Contains(t, report.Verdicts, "tabs")
	assert.Contains(t, report.Verdicts, "cookies")
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors["storage"], "429")
	assert.Equal(t, int32(3), scorer.calls.Load(), "a failed query must not cancel the rest")
}

func TestPermissionAnalyzer_NilScorerSkipsQueries(t *testing.T) {
	a := NewPermissionAnalyzer(testLLMConfig(), nil, zap.NewNop())

	m := &schemas.Manifest{
		Permissions:     []string{"tabs"},
		HostPermissions: []string{"<all_urls>"},
	}
	report := a.Analyze(context.Background(), m)

	assert.Nil(t, report.Verdicts)
	// The static host screen still runs without a scorer.
	assert.True(t, report.HostCritical)
	require.Len(t, report.HostScreen, 1)
	assert.Contains(t, report.HostScreen[0], "<all_urls>")
}

func TestScreenHostPermissions(t *testing.T) {
	tests := []struct {
		name     string
		hosts    []string
		critical bool
		warnings int
	}{
		{"empty", nil, false, 0},
		{"benign", []string{"https://example.com/*"}, false, 0},
		{"all urls", []string{"<all_urls>"}, true, 1},
		{"all https", []string{"https://*/*"}, true, 1},
		{"excessive wildcards", []string{"*://*.example.com/*"}, true, 1},
		{"mixed", []string{"https://example.com/*", "<all_urls>"}, true, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			warnings, critical := screenHostPermissions(tc.hosts)
			assert.Equal(t, tc.critical, critical)
			assert.Len(t, warnings, tc.warnings)
		})
	}
}

func TestReputation(t *testing.T) {
	assert.Nil(t, Reputation(nil))
	assert.Nil(t, Reputation(map[string]any{}))
	assert.Nil(t, Reputation(map[string]any{"unrelated": 42}))

	report := Reputation(map[string]any{
		"title":     "Tab Saver",
		"developer": "Example Co",
		"users":     "100,000+",
		"rating":    4.5,
	})
	require.NotNil(t, report)
	assert.Equal(t, "Tab Saver", report.Title)
	assert.Equal(t, "Example Co", report.Developer)
	assert.Equal(t, "100,000+", report.Users)
	assert.Equal(t, 4.5, report.Rating)
}

func TestFacts(t *testing.T) {
	m := &schemas.Manifest{Name: "Tab Saver", Version: "1.2", Description: "Saves tabs."}

	facts := Facts(m, nil)
	assert.Equal(t, "Tab Saver", facts.Name)
	assert.Nil(t, facts.Permissions)

	results := &schemas.AnalysisResults{
		Permissions: &schemas.PermissionReport{Declared: []string{"tabs"}},
		Static: &schemas.StaticReport{
			Stats:       schemas.ScanStats{TotalFindings: 2},
			TopFindings: []schemas.Finding{{Severity: schemas.SeverityCritical, File: "bg.js"}},
		},
	}
	facts = Facts(m, results)
	require.NotNil(t, facts.Permissions)
	require.NotNil(t, facts.ScanStats)
	assert.Equal(t, 2, facts.ScanStats.TotalFindings)
	require.Len(t, facts.TopFindings, 1)
}
