// File: internal/sast/executor.go
// Description: Dispatches file batches to the external scanner under a
// bounded-parallelism ceiling with per-batch timeouts, and reconciles the
// partial results into a single per-file finding map.
package sast

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/config"
)

// Engine composes the file selector, batch partitioner, executor, and
// aggregator into the full scanning subsystem. The caller selects the
// sequential, single-batch, or parallel strategy through configuration; the
// output shape is identical for all three.
type Engine struct {
	cfg      config.SastConfig
	scanner  Scanner
	selector *Selector
	logger   *zap.Logger
}

// NewEngine creates the scanning engine.
func NewEngine(cfg config.SastConfig, scanner Scanner, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		scanner:  scanner,
		selector: NewSelector(cfg),
		logger:   logger.Named("sast"),
	}
}

// availabilityChecker is implemented by scanners that can cheaply probe for
// the underlying tool before any batch is dispatched.
type availabilityChecker interface {
	Available() bool
}

// Run filters the candidate files, scans the eligible set, and returns the
// aggregated report. Candidate paths are absolute; every result key is
// relative to root. A file in the result map with an empty finding list was
// scanned clean; a file absent from the map was not scanned.
func (e *Engine) Run(ctx context.Context, candidates []string, root string) (*schemas.StaticReport, error) {
	if probe, ok := e.scanner.(availabilityChecker); ok && !probe.Available() {
		return nil, ErrToolUnavailable
	}

	eligible, skipped := e.selector.Filter(candidates, root)
	e.logger.Info("Filtered scan candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("eligible", len(eligible)),
		zap.Int("skipped", len(skipped)),
	)

	findings := make(map[string][]schemas.Finding)
	switch {
	case len(eligible) == 0:
		// Nothing to scan; the empty map still distinguishes "clean" runs.
	case e.cfg.ParallelEnabled && len(eligible) > e.cfg.Workers:
		batches := Partition(eligible, e.cfg.Workers)
		e.logger.Info("Using parallel batch scanning",
			zap.Int("batches", len(batches)),
			zap.Int("workers", e.cfg.Workers),
		)
		findings = e.executeParallel(ctx, batches, root)
	case e.cfg.BatchEnabled:
		e.logger.Info("Using single-batch scanning", zap.Int("files", len(eligible)))
		m, err := e.executeBatch(ctx, eligible, root)
		if err != nil {
			e.logger.Error("Batch scan failed", zap.Error(err), zap.Int("files", len(eligible)))
		} else {
			findings = m
		}
	default:
		e.logger.Info("Using sequential scanning", zap.Int("files", len(eligible)))
		for _, file := range eligible {
			m, err := e.executeBatch(ctx, []string{file}, root)
			if err != nil {
				e.logger.Error("Sequential scan failed", zap.Error(err), zap.String("file", RelKey(root, file)))
				continue
			}
			for k, v := range m {
				findings[k] = v
			}
		}
	}

	return &schemas.StaticReport{
		Findings:     findings,
		Stats:        Aggregate(findings),
		Skipped:      skipped,
		FilesScanned: len(eligible),
		TopFindings:  TopN(findings, e.cfg.TopFindings),
	}, nil
}

// batchTimeout computes a batch's allotted wall time: a per-file budget plus
// a fixed overhead absorbing process startup cost.
func (e *Engine) batchTimeout(size int) time.Duration {
	return time.Duration(size)*e.cfg.TimeoutPerFile + e.cfg.Overhead
}

// executeBatch scans one batch and re-keys its findings by package-relative
// path. Every file in the batch gets an entry, so "scanned but clean" stays
// observable.
func (e *Engine) executeBatch(ctx context.Context, batch []string, root string) (map[string][]schemas.Finding, error) {
	bctx, cancel := context.WithTimeout(ctx, e.batchTimeout(len(batch)))
	defer cancel()

	found, err := e.scanner.ScanBatch(bctx, batch)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]schemas.Finding, len(batch))
	for _, file := range batch {
		out[RelKey(root, file)] = []schemas.Finding{}
	}
	for _, f := range found {
		key := RelKey(root, f.File)
		if _, ok := out[key]; !ok {
			// The tool reported a path outside this batch; ignore it
			// rather than inventing a scan key.
			continue
		}
		f.File = key
		out[key] = append(out[key], f)
	}
	return out, nil
}

// batchResult carries one batch's outcome to the coordinating goroutine.
type batchResult struct {
	findings map[string][]schemas.Finding
	err      error
	size     int
}

// executeParallel dispatches all batches concurrently, capped at the worker
// ceiling. Each batch's failure is contained: its files are simply absent
// from the merged map and siblings run to completion. Merging happens only on
// the coordinating goroutine after each result arrives, so the shared map
// never sees concurrent writers.
func (e *Engine) executeParallel(ctx context.Context, batches [][]string, root string) map[string][]schemas.Finding {
	sem := semaphore.NewWeighted(int64(e.cfg.Workers))
	results := make(chan batchResult, len(batches))

	for _, batch := range batches {
		go func(batch []string) {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- batchResult{err: err, size: len(batch)}
				return
			}
			defer sem.Release(1)

			m, err := e.executeBatch(ctx, batch, root)
			results <- batchResult{findings: m, err: err, size: len(batch)}
		}(batch)
	}

	merged := make(map[string][]schemas.Finding)
	for range batches {
		res := <-results
		if res.err != nil {
			e.logger.Error("Parallel batch scan failed; files recorded as unscanned",
				zap.Error(res.err),
				zap.Int("files", res.size),
			)
			continue
		}
		for k, v := range res.findings {
			merged[k] = v
		}
		e.logger.Debug("Merged batch results", zap.Int("files", res.size))
	}
	return merged
}
