// File: api/schemas/interfaces.go
// Description: Contracts for the external collaborators of the pipeline. The
// orchestrator is injected with these interfaces, keeping it decoupled from
// network, subprocess, and model concerns and easy to test with fakes.
package schemas

import "context"

// MetadataFetcher retrieves the loosely-typed attribute map for a store
// listing. A returned error is always soft: the pipeline logs it and proceeds
// with nil metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, locator string) (map[string]any, error)
}

// AcquiredPackage is the result of downloading or copying a package and
// unpacking it.
type AcquiredPackage struct {
	// Dir is the temporary directory containing the unpacked package.
	Dir string
	// ArtifactPath is the downloaded package file, empty when the user
	// supplied a local file. Only a non-empty ArtifactPath may ever be
	// deleted by cleanup.
	ArtifactPath string
}

// PackageAcquirer turns a locator (store URL or local path) into an unpacked
// package directory. Failure is fatal to the run.
type PackageAcquirer interface {
	Acquire(ctx context.Context, locator string) (*AcquiredPackage, error)
}

// ManifestParser extracts the structured descriptor from an unpacked package
// directory. Failure is fatal to the run; a missing and a malformed manifest
// are reported as distinct errors.
type ManifestParser interface {
	Parse(dir string) (*Manifest, error)
}

// RiskScorer is the model-backed judgment collaborator. It is treated as an
// opaque call: the pipeline never retries it and never inspects the judgment
// beyond the output contract.
type RiskScorer interface {
	// Judge produces the executive summary for a full fact sheet.
	Judge(ctx context.Context, facts RiskFacts) (*ExecutiveSummary, error)
	// JudgePermission evaluates whether a single permission is reasonable
	// for the described extension.
	JudgePermission(ctx context.Context, name, description, permission string) (*PermissionVerdict, error)
}
