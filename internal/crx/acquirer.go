// File: internal/crx/acquirer.go
// Description: Turns a locator (store listing URL or local package file) into
// an unpacked extension directory. Distinguishes tool-downloaded artifacts,
// which cleanup may delete, from user-supplied files, which it never touches.
package crx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/api/schemas"
	"github.com/xkilldash9x/crxtriage/internal/config"
)

// Acquirer implements schemas.PackageAcquirer against the Chrome update CDN
// and the local filesystem.
type Acquirer struct {
	cfg        config.AcquirerConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewAcquirer creates an Acquirer. A nil httpClient gets a default client
// with the configured timeout.
func NewAcquirer(cfg config.AcquirerConfig, logger *zap.Logger, httpClient *http.Client) *Acquirer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Acquirer{
		cfg:        cfg,
		logger:     logger.Named("acquirer"),
		httpClient: httpClient,
	}
}

// Acquire resolves the locator into an unpacked package directory.
func (a *Acquirer) Acquire(ctx context.Context, locator string) (*schemas.AcquiredPackage, error) {
	if IsLocalPackage(locator) {
		a.logger.Info("Extracting user-supplied package", zap.String("path", locator))
		dir, err := Extract(locator)
		if err != nil {
			return nil, fmt.Errorf("extracting local package: %w", err)
		}
		// ArtifactPath stays empty: the user's file is never deleted.
		return &schemas.AcquiredPackage{Dir: dir}, nil
	}

	if !IsStoreURL(locator) {
		return nil, fmt.Errorf("locator %q is neither a store URL nor a local package", locator)
	}

	artifact, err := a.download(ctx, locator)
	if err != nil {
		return nil, err
	}

	dir, err := Extract(artifact)
	if err != nil {
		// The artifact is already on disk; hand it back so cleanup can
		// still remove it.
		return &schemas.AcquiredPackage{ArtifactPath: artifact}, fmt.Errorf("extracting downloaded package: %w", err)
	}
	return &schemas.AcquiredPackage{Dir: dir, ArtifactPath: artifact}, nil
}

// downloadURL builds the update-CDN request for an extension ID.
func (a *Acquirer) downloadURL(extensionID string) string {
	q := url.Values{}
	q.Set("response", "redirect")
	q.Set("prodversion", a.cfg.ChromeVersion)
	q.Set("acceptformat", "crx2,crx3")
	q.Set("x", "id="+extensionID+"&uc")
	return "https://clients2.google.com/service/update2/crx?" + q.Encode()
}

func (a *Acquirer) download(ctx context.Context, listingURL string) (string, error) {
	extensionID, err := ExtensionIDFromURL(listingURL)
	if err != nil {
		return "", err
	}

	storageDir := a.cfg.StorageDir
	if storageDir == "" {
		storageDir, err = os.MkdirTemp("", "crxtriage_dl_")
		if err != nil {
			return "", fmt.Errorf("creating download dir: %w", err)
		}
	} else if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return "", fmt.Errorf("creating storage dir: %w", err)
	}

	target := a.downloadURL(extensionID)
	a.logger.Info("Downloading extension package",
		zap.String("extension_id", extensionID),
		zap.String("url", target),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading extension %s: %w", extensionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading extension %s: unexpected status %s", extensionID, resp.Status)
	}

	path := filepath.Join(storageDir, extensionID+".crx")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating artifact file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing artifact file: %w", err)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing artifact file: %w", closeErr)
	}

	a.logger.Info("Download complete",
		zap.String("extension_id", extensionID),
		zap.String("path", path),
		zap.Int64("bytes", size),
		zap.String("sha256", hex.EncodeToString(hasher.Sum(nil))),
	)
	return path, nil
}
