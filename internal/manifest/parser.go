// File: internal/manifest/parser.go
// Description: Parses manifest.json from an unpacked extension directory into
// the normalized schemas.Manifest descriptor. Supports Manifest V2 and V3.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sentinel errors so callers can distinguish a missing manifest from a
// malformed one; both are fatal to a run but reported differently.
var (
	ErrNotFound = errors.New("manifest.json not found")
	ErrInvalid  = errors.New("manifest.json is not valid JSON")
)

// Parser extracts the structured descriptor from an extension directory.
type Parser struct {
	logger *zap.Logger
}

// New creates a manifest Parser.
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("manifest")}
}

// rawManifest mirrors the on-disk manifest.json shape, keeping the
// version-polymorphic fields raw until normalization.
type rawManifest struct {
	Name                string             `json:"name"`
	Version             string             `json:"version"`
	ManifestVersion     int                `json:"manifest_version"`
	Description         string             `json:"description"`
	Permissions         []string           `json:"permissions"`
	HostPermissions     []string           `json:"host_permissions"`
	OptionalPermissions []string           `json:"optional_permissions"`
	ContentScripts      []rawContentScript `json:"content_scripts"`
	Background          *rawBackground     `json:"background"`

	// V2 lists bare strings, V3 lists objects.
	WebAccessibleResources jsoniter.RawMessage `json:"web_accessible_resources"`
	// V2 is a string, V3 is an object with extension_pages.
	ContentSecurityPolicy jsoniter.RawMessage `json:"content_security_policy"`
	// Sometimes a string, sometimes an object with an email field.
	Author jsoniter.RawMessage `json:"author"`

	ExternallyConnectable map[string]any `json:"externally_connectable"`
	UpdateURL             string         `json:"update_url"`
	HomepageURL           string         `json:"homepage_url"`
}

type rawContentScript struct {
	Matches         []string `json:"matches"`
	ExcludeMatches  []string `json:"exclude_matches"`
	JS              []string `json:"js"`
	CSS             []string `json:"css"`
	RunAt           string   `json:"run_at"`
	AllFrames       bool     `json:"all_frames"`
	MatchAboutBlank bool     `json:"match_about_blank"`
}

type rawBackground struct {
	ServiceWorker string   `json:"service_worker"`
	Scripts       []string `json:"scripts"`
	Page          string   `json:"page"`
	Persistent    *bool    `json:"persistent"`
}

// Parse reads and normalizes manifest.json from dir.
func (p *Parser) Parse(dir string) (*schemas.Manifest, error) {
	path := filepath.Join(dir, "manifest.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if raw.ManifestVersion == 0 {
		raw.ManifestVersion = 2
	}

	m := &schemas.Manifest{
		Name:                  firstNonEmpty(raw.Name, "Unknown"),
		Version:               firstNonEmpty(raw.Version, "Unknown"),
		ManifestVersion:       raw.ManifestVersion,
		Description:           raw.Description,
		OptionalPermissions:   raw.OptionalPermissions,
		ExternallyConnectable: raw.ExternallyConnectable,
		UpdateURL:             raw.UpdateURL,
		HomepageURL:           raw.HomepageURL,
	}

	m.Permissions, m.HostPermissions = splitPermissions(&raw)
	m.ContentScripts = normalizeContentScripts(raw.ContentScripts)
	m.Background = normalizeBackground(&raw)
	m.WebAccessibleResources = decodeWebAccessibleResources(raw.WebAccessibleResources)
	m.ContentSecurityPolicy = decodeCSP(raw.ContentSecurityPolicy)
	m.Author = decodeAuthor(raw.Author)

	p.logger.Info("Manifest parsed",
		zap.String("name", m.Name),
		zap.String("version", m.Version),
		zap.Int("manifest_version", m.ManifestVersion),
		zap.Int("permissions", len(m.Permissions)),
		zap.Int("content_scripts", len(m.ContentScripts)),
	)
	return m, nil
}

// splitPermissions separates API permissions from host URL patterns. V3
// declares host_permissions separately; V2 mixes URL patterns into the
// permissions array.
func splitPermissions(raw *rawManifest) (perms, hosts []string) {
	if raw.ManifestVersion == 3 {
		for _, p := range raw.Permissions {
			if !isURLPattern(p) {
				perms = append(perms, p)
			}
		}
		return perms, raw.HostPermissions
	}
	for _, p := range raw.Permissions {
		if isURLPattern(p) {
			hosts = append(hosts, p)
		} else {
			perms = append(perms, p)
		}
	}
	return perms, hosts
}

// isURLPattern reports whether a permission entry is a host URL pattern
// rather than an API permission name.
func isURLPattern(permission string) bool {
	if permission == "<all_urls>" {
		return true
	}
	return strings.Contains(permission, "://")
}

func normalizeContentScripts(raw []rawContentScript) []schemas.ContentScript {
	out := make([]schemas.ContentScript, 0, len(raw))
	for _, cs := range raw {
		runAt := cs.RunAt
		if runAt == "" {
			runAt = "document_idle"
		}
		out = append(out, schemas.ContentScript{
			Matches:         cs.Matches,
			ExcludeMatches:  cs.ExcludeMatches,
			JS:              cs.JS,
			CSS:             cs.CSS,
			RunAt:           runAt,
			AllFrames:       cs.AllFrames,
			MatchAboutBlank: cs.MatchAboutBlank,
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeBackground(raw *rawManifest) *schemas.Background {
	bg := raw.Background
	if bg == nil {
		return nil
	}
	if raw.ManifestVersion == 3 {
		return &schemas.Background{ServiceWorker: bg.ServiceWorker}
	}
	// V2 background pages are persistent unless declared otherwise.
	persistent := true
	if bg.Persistent != nil {
		persistent = *bg.Persistent
	}
	return &schemas.Background{
		Scripts:    bg.Scripts,
		Page:       bg.Page,
		Persistent: persistent,
	}
}

// decodeWebAccessibleResources accepts both the V2 form (array of strings)
// and the V3 form (array of objects with resources and matches).
func decodeWebAccessibleResources(raw jsoniter.RawMessage) []schemas.WebAccessibleResource {
	if len(raw) == 0 {
		return nil
	}
	var v3 []schemas.WebAccessibleResource
	if err := json.Unmarshal(raw, &v3); err == nil {
		return v3
	}
	var v2 []string
	if err := json.Unmarshal(raw, &v2); err == nil && len(v2) > 0 {
		return []schemas.WebAccessibleResource{{Resources: v2}}
	}
	return nil
}

// decodeCSP accepts the V2 string form and the V3 object form, keeping only
// the extension_pages policy from the latter.
func decodeCSP(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ExtensionPages string `json:"extension_pages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ExtensionPages
	}
	return ""
}

func decodeAuthor(raw jsoniter.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Email
	}
	return ""
}

func firstNonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
