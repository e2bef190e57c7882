// File: internal/sast/scanner.go
// Description: Invokes the external static-analysis tool (semgrep) as a
// subprocess over a batch of files and decodes its JSON findings.
package sast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrToolUnavailable indicates the scanner binary is not installed or not on
// PATH. Together with a batch timeout these are the only scanner failure
// signals; a non-zero exit purely because findings exist is success.
var ErrToolUnavailable = errors.New("static-analysis tool not found in PATH")

// Scanner runs the external tool over one batch of files. Returned findings
// carry the path exactly as the tool reported it; re-keying to
// package-relative paths is the executor's job.
type Scanner interface {
	ScanBatch(ctx context.Context, files []string) ([]schemas.Finding, error)
}

// SemgrepScanner shells out to semgrep with a fixed rule set.
type SemgrepScanner struct {
	binary  string
	ruleSet string
	logger  *zap.Logger
}

// NewSemgrepScanner creates a scanner for the given rule-set identifier.
func NewSemgrepScanner(ruleSet string, logger *zap.Logger) *SemgrepScanner {
	return &SemgrepScanner{
		binary:  "semgrep",
		ruleSet: ruleSet,
		logger:  logger.Named("semgrep"),
	}
}

// Available reports whether the scanner binary can be found.
func (s *SemgrepScanner) Available() bool {
	_, err := exec.LookPath(s.binary)
	return err == nil
}

// semgrepOutput mirrors the subset of semgrep's JSON output we consume.
type semgrepOutput struct {
	Results []struct {
		Path  string `json:"path"`
		Start struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Severity string `json:"severity"`
			Message  string `json:"message"`
			Metadata struct {
				Category string `json:"category"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
}

// ScanBatch runs the tool over the batch. Zero files is a valid, empty scan.
func (s *SemgrepScanner) ScanBatch(ctx context.Context, files []string) ([]schemas.Finding, error) {
	if len(files) == 0 {
		return nil, nil
	}

	args := append([]string{"--config", s.ruleSet, "--json"}, files...)
	cmd := exec.CommandContext(ctx, s.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("Running batch scan",
		zap.Int("files", len(files)),
		zap.String("rule_set", s.ruleSet),
	)

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("scan of %d files: %w", len(files), ctx.Err())
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return nil, ErrToolUnavailable
		}
		var exitErr *exec.ExitError
		// Semgrep exits non-zero when findings exist; only treat the run
		// as failed when it produced no parseable output.
		if !errors.As(runErr, &exitErr) || stdout.Len() == 0 {
			return nil, fmt.Errorf("scanner process failed: %w (stderr: %s)", runErr, stderr.String())
		}
	}

	var out semgrepOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("decoding scanner output: %w", err)
	}

	findings := make([]schemas.Finding, 0, len(out.Results))
	for _, r := range out.Results {
		category := r.Extra.Metadata.Category
		if category == "" {
			category = "unknown"
		}
		findings = append(findings, schemas.Finding{
			Severity: schemas.NormalizeSeverity(r.Extra.Severity),
			Message:  r.Extra.Message,
			File:     r.Path,
			Line:     r.Start.Line,
			Category: category,
		})
	}
	return findings, nil
}
