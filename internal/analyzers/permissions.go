// File: internal/analyzers/permissions.go
// Description: Analyzes the permission surface of an extension. Per-permission
// risk queries fan out to the scoring collaborator and join at a completion
// barrier; an individual query failure becomes an error entry keyed by
// permission, never a stage-level failure.
package analyzers

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/config"
)

// criticalHostPatterns grant access so broad they are flagged without any
// model involvement.
var criticalHostPatterns = map[string]string{
	"<all_urls>":  "access to all websites and local files",
	"*://*/*":     "access to all HTTP/HTTPS websites",
	"http://*/*":  "access to all HTTP websites",
	"https://*/*": "access to all HTTPS websites",
	"file:///*":   "access to local files",
}

// PermissionAnalyzer produces the PermissionReport for a manifest.
type PermissionAnalyzer struct {
	scorer  schemas.RiskScorer
	limiter *rate.Limiter
	workers int
	logger  *zap.Logger
}

// NewPermissionAnalyzer creates the analyzer. A nil scorer disables the
// per-permission model queries; the static host screen still runs.
func NewPermissionAnalyzer(cfg config.LLMConfig, scorer schemas.RiskScorer, logger *zap.Logger) *PermissionAnalyzer {
	return &PermissionAnalyzer{
		scorer:  scorer,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		workers: cfg.Burst,
		logger:  logger.Named("permissions"),
	}
}

// Analyze builds the full permission report.
func (a *PermissionAnalyzer) Analyze(ctx context.Context, m *schemas.Manifest) *schemas.PermissionReport {
	report := &schemas.PermissionReport{
		Declared:  m.Permissions,
		Dangerous: m.DangerousPermissions(),
	}
	report.HostScreen, report.HostCritical = screenHostPermissions(m.HostPermissions)

	if a.scorer == nil || len(m.Permissions) == 0 {
		return report
	}

	verdicts, errs := a.queryPermissions(ctx, m)
	report.Verdicts = verdicts
	report.Errors = errs
	return report
}

// queryPermissions fans out one model query per permission and blocks until
// the complete set has returned. Results are collected by index and combined
// only after the barrier, so no partial result ever leaks into shared state.
func (a *PermissionAnalyzer) queryPermissions(ctx context.Context, m *schemas.Manifest) (map[string]schemas.PermissionVerdict, map[string]string) {
	type outcome struct {
		verdict *schemas.PermissionVerdict
		err     error
	}
	outcomes := make([]outcome, len(m.Permissions))

	g, gctx := errgroup.WithContext(ctx)
	if a.workers > 0 {
		g.SetLimit(a.workers)
	}

	for i, permission := range m.Permissions {
		i, permission := i, permission
		g.Go(func() error {
			if err := a.limiter.Wait(gctx); err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			v, err := a.scorer.JudgePermission(gctx, m.Name, m.Description, permission)
			outcomes[i] = outcome{verdict: v, err: err}
			// Failures are recorded per permission, never propagated, so
			// one bad query cannot cancel its siblings.
			return nil
		})
	}
	g.Wait()

	verdicts := make(map[string]schemas.PermissionVerdict)
	errs := make(map[string]string)
	for i, permission := range m.Permissions {
		switch {
		case outcomes[i].err != nil:
			a.logger.Warn("Permission query failed",
				zap.String("permission", permission),
				zap.Error(outcomes[i].err),
			)
			errs[permission] = outcomes[i].err.Error()
		case outcomes[i].verdict != nil:
			verdicts[permission] = *outcomes[i].verdict
		}
	}
	if len(errs) == 0 {
		errs = nil
	}
	return verdicts, errs
}

// screenHostPermissions flags critical host patterns and excessive wildcard
// use without consulting the model.
func screenHostPermissions(hosts []string) (warnings []string, critical bool) {
	for _, pattern := range hosts {
		if desc, ok := criticalHostPatterns[pattern]; ok {
			warnings = append(warnings, fmt.Sprintf("critical host permission %q: %s", pattern, desc))
			critical = true
			continue
		}
		if strings.Count(pattern, "*") > 2 {
			warnings = append(warnings, fmt.Sprintf("host permission %q uses excessive wildcards", pattern))
			critical = true
		}
	}
	return warnings, critical
}
