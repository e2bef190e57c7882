// File: internal/crx/extract.go
package crx

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// crxMagic is the four-byte signature at the start of every CRX file.
const crxMagic = "Cr24"

// zipOffset locates the start of the embedded ZIP archive inside a CRX file.
// CRX2 carries a public key and signature after a 16-byte header; CRX3 has a
// single length-prefixed protobuf header.
func zipOffset(f *os.File) (int64, error) {
	header := make([]byte, 16)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, fmt.Errorf("reading CRX header: %w", err)
	}
	if string(header[:4]) != crxMagic {
		return 0, fmt.Errorf("not a CRX file: bad magic %q", header[:4])
	}

	version := binary.LittleEndian.Uint32(header[4:8])
	switch version {
	case 2:
		keyLen := int64(binary.LittleEndian.Uint32(header[8:12]))
		sigLen := int64(binary.LittleEndian.Uint32(header[12:16]))
		return 16 + keyLen + sigLen, nil
	case 3:
		headerLen := int64(binary.LittleEndian.Uint32(header[8:12]))
		return 12 + headerLen, nil
	default:
		return 0, fmt.Errorf("unsupported CRX version %d", version)
	}
}

// Extract unpacks a .crx or .zip package into a fresh temporary directory and
// returns its path. The caller owns the directory and must remove it.
func Extract(packagePath string) (string, error) {
	f, err := os.Open(packagePath)
	if err != nil {
		return "", fmt.Errorf("opening package: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stating package: %w", err)
	}

	var offset int64
	if strings.HasSuffix(strings.ToLower(packagePath), ".crx") {
		offset, err = zipOffset(f)
		if err != nil {
			return "", err
		}
	}

	reader, err := zip.NewReader(io.NewSectionReader(f, offset, info.Size()-offset), info.Size()-offset)
	if err != nil {
		return "", fmt.Errorf("opening embedded archive: %w", err)
	}

	dir, err := os.MkdirTemp("", "crxtriage_"+filepath.Base(packagePath)+"_")
	if err != nil {
		return "", fmt.Errorf("creating extraction dir: %w", err)
	}

	if err := unpack(reader, dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// unpack writes every archive entry under dir, rejecting entries that would
// escape it.
func unpack(reader *zip.Reader, dir string) error {
	for _, entry := range reader.File {
		dest, err := safeJoin(dir, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", entry.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating parent of %s: %w", entry.Name, err)
		}
		if err := writeEntry(entry, dest); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening archive entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("extracting %s: %w", entry.Name, err)
	}
	return nil
}

// safeJoin joins an archive entry name onto dir, refusing path traversal.
func safeJoin(dir, name string) (string, error) {
	dest := filepath.Join(dir, filepath.FromSlash(name))
	if dest != dir && !strings.HasPrefix(dest, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return dest, nil
}
