// File: internal/sast/filter.go
package sast

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/config"
)

// Selector decides which candidate files are eligible for scanning. Rules are
// evaluated in a fixed order and the first match wins: excluded path segment,
// excluded filename pattern, excluded library name, then file size.
type Selector struct {
	cfg config.SastConfig
}

// NewSelector creates a Selector for the given scan configuration.
func NewSelector(cfg config.SastConfig) *Selector {
	return &Selector{cfg: cfg}
}

// Filter splits absolute candidate paths into eligible and skipped sets.
// Eligible paths come back sorted lexicographically so downstream batching is
// deterministic. Skip reasons are keyed by the path relative to root. When
// scanning is globally disabled, every candidate passes through unfiltered.
func (s *Selector) Filter(candidates []string, root string) ([]string, []schemas.SkippedFile) {
	eligible := make([]string, 0, len(candidates))
	var skipped []schemas.SkippedFile

	if !s.cfg.Enabled {
		eligible = append(eligible, candidates...)
		sort.Strings(eligible)
		return eligible, nil
	}

	for _, path := range candidates {
		if reason := s.skipReason(path, root); reason != "" {
			skipped = append(skipped, schemas.SkippedFile{
				File:   RelKey(root, path),
				Reason: reason,
			})
			continue
		}
		eligible = append(eligible, path)
	}

	sort.Strings(eligible)
	return eligible, skipped
}

// skipReason returns a human-readable exclusion reason, or "" when the file
// should be scanned.
func (s *Selector) skipReason(path, root string) string {
	rel := strings.ToLower(filepath.ToSlash(RelKey(root, path)))
	name := strings.ToLower(filepath.Base(path))

	// Rule 1: excluded path segment (vendored/library directories).
	for _, segment := range s.cfg.Exclusions.PathSegments {
		seg := strings.ToLower(segment)
		if strings.Contains(rel, "/"+seg) || strings.HasPrefix(rel, seg) {
			return fmt.Sprintf("path contains %q", segment)
		}
	}

	// Rule 2: excluded filename glob.
	for _, pattern := range s.cfg.Exclusions.FilePatterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), name); err == nil && ok {
			return fmt.Sprintf("matches pattern %q", pattern)
		}
	}

	// Rule 3: excluded library name substring.
	for _, lib := range s.cfg.Exclusions.LibraryNames {
		if strings.Contains(name, strings.ToLower(lib)) {
			return fmt.Sprintf("matches library name %q", lib)
		}
	}

	// Rule 4: size ceiling.
	if info, err := os.Stat(path); err == nil {
		if sizeKB := info.Size() / 1024; sizeKB > s.cfg.MaxFileSizeKB {
			return fmt.Sprintf("file size (%dKB) exceeds threshold (%dKB)", sizeKB, s.cfg.MaxFileSizeKB)
		}
	}

	return ""
}

// RelKey computes the scan key for a file: its path relative to the extracted
// package root, in slash form. Every scanning strategy keys its results this
// way so aggregation is order-independent.
func RelKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}
