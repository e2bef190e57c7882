// internal/crx/acquirer_test.go
package crx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/internal/config"
)

func testAcquirer(t *testing.T, rt http.RoundTripper) *Acquirer {
	t.Helper()
	storage := t.TempDir()
	cfg := config.AcquirerConfig{
		ChromeVersion: "118.0",
		StorageDir:    storage,
		Timeout:       5 * time.Second,
	}
	client := &http.Client{Timeout: 5 * time.Second}
	if rt != nil {
		client.Transport = rt
	}
	return NewAcquirer(cfg, zap.NewNop(), client)
}

// redirectTransport rewrites every request to the local test server.
type redirectTransport struct {
	target string
}

func (rt *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	redirected, err := http.NewRequestWithContext(req.Context(), req.Method, rt.target, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultTransport.RoundTrip(redirected)
}

func TestAcquire_LocalPackage(t *testing.T) {
	pkg := writePackage(t, "ext.zip", buildZip(t, testEntries))
	a := testAcquirer(t, nil)

	got, err := a.Acquire(context.Background(), pkg)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(got.Dir) })

	assert.Empty(t, got.ArtifactPath, "user-supplied files are never recorded as deletable artifacts")
	assertExtracted(t, got.Dir)
	assert.FileExists(t, pkg, "the user's file must be untouched")
}

func TestAcquire_StoreDownload(t *testing.T) {
	crxData := buildCRX3(t, buildZip(t, testEntries))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(crxData)
	}))
	defer server.Close()

	a := testAcquirer(t, &redirectTransport{target: server.URL})
	listing := "https://chromewebstore.google.com/detail/tab-saver/" + testID

	got, err := a.Acquire(context.Background(), listing)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(got.Dir) })
	t.Cleanup(func() { os.Remove(got.ArtifactPath) })

	require.NotEmpty(t, got.ArtifactPath)
	assert.FileExists(t, got.ArtifactPath)
	assert.Contains(t, got.ArtifactPath, testID+".crx")
	assertExtracted(t, got.Dir)
}

func TestAcquire_DownloadStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such extension", http.StatusNotFound)
	}))
	defer server.Close()

	a := testAcquirer(t, &redirectTransport{target: server.URL})
	listing := "https://chromewebstore.google.com/detail/tab-saver/" + testID

	got, err := a.Acquire(context.Background(), listing)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestAcquire_CorruptDownloadKeepsArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not a crx"))
	}))
	defer server.Close()

	a := testAcquirer(t, &redirectTransport{target: server.URL})
	listing := "https://chromewebstore.google.com/detail/tab-saver/" + testID

	got, err := a.Acquire(context.Background(), listing)
	require.Error(t, err)
	// The artifact path comes back even on failure so the caller can
	// delete the partial download.
	require.NotNil(t, got)
	assert.NotEmpty(t, got.ArtifactPath)
	assert.Empty(t, got.Dir)
	assert.FileExists(t, got.ArtifactPath)
	t.Cleanup(func() { os.Remove(got.ArtifactPath) })
}

func TestAcquire_UnrecognizedLocator(t *testing.T) {
	a := testAcquirer(t, nil)
	_, err := a.Acquire(context.Background(), "ftp://example.com/ext.crx")
	require.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	a := testAcquirer(t, nil)
	url := a.downloadURL(testID)
	assert.Contains(t, url, "https://clients2.google.com/service/update2/crx?")
	assert.Contains(t, url, "response=redirect")
	assert.Contains(t, url, "prodversion=118.0")
	assert.Contains(t, url, testID)
}
