// internal/manifest/parser_test.go
package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(content), 0o644))
	return dir
}

func TestParse_MissingFile(t *testing.T) {
	p := New(zap.NewNop())
	_, err := p.Parse(t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "manifest.json")
}

func TestParse_InvalidJSON(t *testing.T) {
	p := New(zap.NewNop())
	_, err := p.Parse(writeManifest(t, `{"name": "broken`))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_V3(t *testing.T) {
	dir := writeManifest(t, `{
		"manifest_version": 3,
		"name": "Tab Saver",
		"version": "2.1.0",
		"description": "Saves tabs.",
		"permissions": ["tabs", "storage", "https://leaked.example/*"],
		"host_permissions": ["https://*.example.com/*"],
		"background": {"service_worker": "sw.js"},
		"content_scripts": [{"matches": ["<all_urls>"], "js": ["content.js"]}],
		"web_accessible_resources": [{"resources": ["img/*.png"], "matches": ["https://example.com/*"]}],
		"content_security_policy": {"extension_pages": "script-src 'self'"}
	}`)

	m, err := New(zap.NewNop()).Parse(dir)
	require.NoError(t, err)

	assert.Equal(t, "Tab Saver", m.Name)
	assert.Equal(t, 3, m.ManifestVersion)
	// URL patterns are stripped from the V3 permissions array.
	assert.Equal(t, []string{"tabs", "storage"}, m.Permissions)
	assert.Equal(t, []string{"https://*.example.com/*"}, m.HostPermissions)
	require.NotNil(t, m.Background)
	assert.Equal(t, "sw.js", m.Background.ServiceWorker)
	require.Len(t, m.WebAccessibleResources, 1)
	assert.Equal(t, []string{"img/*.png"}, m.WebAccessibleResources[0].Resources)
	assert.Equal(t, "script-src 'self'", m.ContentSecurityPolicy)
}

func TestParse_V2(t *testing.T) {
	dir := writeManifest(t, `{
		"manifest_version": 2,
		"name": "Old Timer",
		"version": "0.9",
		"permissions": ["cookies", "<all_urls>", "http://*/*", "tabs"],
		"background": {"scripts": ["bg.js", "util.js"]},
		"web_accessible_resources": ["img/icon.png", "frame.html"],
		"content_security_policy": "script-src 'self' 'unsafe-eval'",
		"author": "dev@example.com"
	}`)

	m, err := New(zap.NewNop()).Parse(dir)
	require.NoError(t, err)

	// V2 mixes URL patterns into permissions; the parser splits them out.
	assert.Equal(t, []string{"cookies", "tabs"}, m.Permissions)
	assert.Equal(t, []string{"<all_urls>", "http://*/*"}, m.HostPermissions)

	require.NotNil(t, m.Background)
	assert.Equal(t, []string{"bg.js", "util.js"}, m.Background.Scripts)
	assert.True(t, m.Background.Persistent, "V2 background defaults to persistent")

	require.Len(t, m.WebAccessibleResources, 1)
	assert.Equal(t, []string{"img/icon.png", "frame.html"}, m.WebAccessibleResources[0].Resources)
	assert.Equal(t, "script-src 'self' 'unsafe-eval'", m.ContentSecurityPolicy)
	assert.Equal(t, "dev@example.com", m.Author)
}

func TestParse_Defaults(t *testing.T) {
	m, err := New(zap.NewNop()).Parse(writeManifest(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "Unknown", m.Name)
	assert.Equal(t, "Unknown", m.Version)
	assert.Equal(t, 2, m.ManifestVersion, "missing manifest_version defaults to 2")
	assert.Empty(t, m.Permissions)
	assert.Nil(t, m.Background)
}

func TestParse_V2NonPersistentBackground(t *testing.T) {
	dir := writeManifest(t, `{
		"manifest_version": 2,
		"name": "x", "version": "1",
		"background": {"scripts": ["bg.js"], "persistent": false}
	}`)
	m, err := New(zap.NewNop()).Parse(dir)
	require.NoError(t, err)
	require.NotNil(t, m.Background)
	assert.False(t, m.Background.Persistent)
}

func TestParse_AuthorObject(t *testing.T) {
	dir := writeManifest(t, `{
		"manifest_version": 3, "name": "x", "version": "1",
		"author": {"email": "team@example.com"}
	}`)
	m, err := New(zap.NewNop()).Parse(dir)
	require.NoError(t, err)
	assert.Equal(t, "team@example.com", m.Author)
}

func TestParse_ContentScriptRunAtDefault(t *testing.T) {
	dir := writeManifest(t, `{
		"manifest_version": 3, "name": "x", "version": "1",
		"content_scripts": [{"matches": ["https://a/*"], "js": ["c.js"]}]
	}`)
	m, err := New(zap.NewNop()).Parse(dir)
	require.NoError(t, err)
	require.Len(t, m.ContentScripts, 1)
	assert.Equal(t, "document_idle", m.ContentScripts[0].RunAt)
}

func TestScriptFiles_Dedup(t *testing.T) {
	m := &schemas.Manifest{
		Background: &schemas.Background{Scripts: []string{"shared.js", "bg.js"}},
		ContentScripts: []schemas.ContentScript{
			{JS: []string{"content.js", "shared.js"}},
			{JS: []string{"content.js"}},
		},
	}
	assert.Equal(t, []string{"shared.js", "bg.js", "content.js"}, m.ScriptFiles())
}

func TestDangerousPermissions(t *testing.T) {
	m := &schemas.Manifest{
		Permissions:     []string{"storage", "cookies", "debugger"},
		HostPermissions: []string{"<all_urls>", "https://example.com/*"},
	}
	assert.Equal(t, []string{"cookies", "debugger", "<all_urls>"}, m.DangerousPermissions())
}
