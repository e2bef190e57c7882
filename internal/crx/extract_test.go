// internal/crx/extract_test.go
package crx

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildZip returns an in-memory zip archive with the given name->content
// entries.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildCRX3 wraps zip bytes in a CRX3 container with a dummy header.
func buildCRX3(t *testing.T, zipData []byte) []byte {
	t.Helper()
	header := []byte("dummy-protobuf-header")
	var buf bytes.Buffer
	buf.WriteString(crxMagic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(3)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(header))))
	buf.Write(header)
	buf.Write(zipData)
	return buf.Bytes()
}

// buildCRX2 wraps zip bytes in a CRX2 container with dummy key and signature.
func buildCRX2(t *testing.T, zipData []byte) []byte {
	t.Helper()
	key := []byte("pubkey")
	sig := []byte("signature")
	var buf bytes.Buffer
	buf.WriteString(crxMagic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(2)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(key))))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(sig))))
	buf.Write(key)
	buf.Write(sig)
	buf.Write(zipData)
	return buf.Bytes()
}

func writePackage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

var testEntries = map[string]string{
	"manifest.json": `{"manifest_version": 3, "name": "x", "version": "1"}`,
	"scripts/bg.js": "console.log('bg')",
	"img/icon.png":  "not-really-a-png",
}

func assertExtracted(t *testing.T, dir string) {
	t.Helper()
	for name, content := range testEntries {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, content, string(data), name)
	}
}

func TestExtract_Zip(t *testing.T) {
	path := writePackage(t, "ext.zip", buildZip(t, testEntries))

	dir, err := Extract(path)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	assertExtracted(t, dir)
}

func TestExtract_CRX3(t *testing.T) {
	path := writePackage(t, "ext.crx", buildCRX3(t, buildZip(t, testEntries)))

	dir, err := Extract(path)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	assertExtracted(t, dir)
}

func TestExtract_CRX2(t *testing.T) {
	path := writePackage(t, "ext.crx", buildCRX2(t, buildZip(t, testEntries)))

	dir, err := Extract(path)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	assertExtracted(t, dir)
}

func TestExtract_BadMagic(t *testing.T) {
	path := writePackage(t, "ext.crx", []byte("PK\x03\x04 this is not a crx header......"))
	_, err := Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad magic")
}

func TestExtract_UnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(crxMagic)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(7)))
	buf.Write(make([]byte, 8))
	path := writePackage(t, "ext.crx", buf.Bytes())

	_, err := Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported CRX version")
}

func TestExtract_ZipSlipRejected(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.CreateRaw(&zip.FileHeader{Name: "../escape.js", Method: zip.Store})
	require.NoError(t, err)
	_, err = f.Write([]byte("evil"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := writePackage(t, "evil.zip", buf.Bytes())
	_, err = Extract(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes extraction directory")
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.crx"))
	require.Error(t, err)
}
