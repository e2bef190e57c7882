// File: api/schemas/manifest.go
package schemas

// Manifest is the structured descriptor extracted from a package's
// manifest.json. It normalizes the differences between Manifest V2 and V3 so
// downstream analyzers never have to branch on the manifest version.
type Manifest struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ManifestVersion int    `json:"manifest_version"`
	Description     string `json:"description"`

	// Permissions holds API permissions only. In V2 manifests URL patterns
	// are mixed into the permissions array; the parser moves those into
	// HostPermissions.
	Permissions         []string `json:"permissions"`
	HostPermissions     []string `json:"host_permissions"`
	OptionalPermissions []string `json:"optional_permissions,omitempty"`

	ContentScripts []ContentScript `json:"content_scripts,omitempty"`
	Background     *Background     `json:"background,omitempty"`

	WebAccessibleResources []WebAccessibleResource `json:"web_accessible_resources,omitempty"`
	ContentSecurityPolicy  string                  `json:"content_security_policy,omitempty"`
	ExternallyConnectable  map[string]any          `json:"externally_connectable,omitempty"`
	UpdateURL              string                  `json:"update_url,omitempty"`
	HomepageURL            string                  `json:"homepage_url,omitempty"`
	Author                 string                  `json:"author,omitempty"`
}

// ContentScript describes one content_scripts entry.
type ContentScript struct {
	Matches         []string `json:"matches"`
	ExcludeMatches  []string `json:"exclude_matches,omitempty"`
	JS              []string `json:"js,omitempty"`
	CSS             []string `json:"css,omitempty"`
	RunAt           string   `json:"run_at"`
	AllFrames       bool     `json:"all_frames"`
	MatchAboutBlank bool     `json:"match_about_blank"`
}

// Background describes the background entry point. V3 uses a service worker,
// V2 uses a scripts array or a page.
type Background struct {
	ServiceWorker string   `json:"service_worker,omitempty"`
	Scripts       []string `json:"scripts,omitempty"`
	Page          string   `json:"page,omitempty"`
	Persistent    bool     `json:"persistent,omitempty"`
}

// WebAccessibleResource is a single web_accessible_resources entry. V2
// manifests list bare resource strings; those are represented with empty
// Matches.
type WebAccessibleResource struct {
	Resources []string `json:"resources"`
	Matches   []string `json:"matches,omitempty"`
}

// ScriptFiles returns every JavaScript file the manifest references, deduped.
// These are the candidates for static analysis.
func (m *Manifest) ScriptFiles() []string {
	seen := make(map[string]struct{})
	var files []string
	add := func(f string) {
		if f == "" {
			return
		}
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		files = append(files, f)
	}

	if m.Background != nil {
		add(m.Background.ServiceWorker)
		for _, s := range m.Background.Scripts {
			add(s)
		}
	}
	for _, cs := range m.ContentScripts {
		for _, js := range cs.JS {
			add(js)
		}
	}
	return files
}

// dangerousPermissions are permissions that grant outsized capability and
// always warrant scrutiny, independent of any model judgment.
var dangerousPermissions = map[string]struct{}{
	"cookies":               {},
	"webRequest":            {},
	"webRequestBlocking":    {},
	"proxy":                 {},
	"debugger":              {},
	"declarativeNetRequest": {},
	"management":            {},
	"nativeMessaging":       {},
	"pageCapture":           {},
	"privacy":               {},
	"system.storage":        {},
	"<all_urls>":            {},
	"*://*/*":               {},
	"http://*/*":            {},
	"https://*/*":           {},
}

// DangerousPermissions returns the subset of declared permissions (API and
// host) that appear on the high-risk list, in declaration order.
func (m *Manifest) DangerousPermissions() []string {
	var out []string
	for _, p := range append(append([]string{}, m.Permissions...), m.HostPermissions...) {
		if _, ok := dangerousPermissions[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
