// File: internal/crx/locator.go
package crx

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// storeURLPrefix is the canonical Chrome Web Store listing prefix.
const storeURLPrefix = "https://chromewebstore.google.com/detail/"

var idQueryRe = regexp.MustCompile(`id=([a-p]{32})`)

// IsStoreURL reports whether the locator is a web store listing URL.
func IsStoreURL(locator string) bool {
	return strings.HasPrefix(locator, storeURLPrefix)
}

// IsLocalPackage reports whether the locator is an existing local .crx or
// .zip package file.
func IsLocalPackage(locator string) bool {
	lower := strings.ToLower(locator)
	if !strings.HasSuffix(lower, ".crx") && !strings.HasSuffix(lower, ".zip") {
		return false
	}
	info, err := os.Stat(locator)
	return err == nil && info.Mode().IsRegular()
}

// ExtensionIDFromURL extracts the 32-character extension ID from a store
// listing URL. Both the /detail/name/id path form and the id= query form are
// recognized.
func ExtensionIDFromURL(url string) (string, error) {
	if m := idQueryRe.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if rest, ok := strings.CutPrefix(url, storeURLPrefix); ok {
		parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
		id := parts[len(parts)-1]
		if i := strings.IndexAny(id, "?#"); i >= 0 {
			id = id[:i]
		}
		if isExtensionID(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no extension ID found in URL %q", url)
}

// isExtensionID checks the store's ID alphabet: 32 letters a through p.
func isExtensionID(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'p' {
			return false
		}
	}
	return true
}
