// File: internal/webstore/metadata.go
// Description: Best-effort fetcher for store listing metadata. Every failure
// here is soft: the pipeline proceeds with nil metadata and reduced detail.
package webstore

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/crxtriage/internal/config"
)

// Fetcher implements schemas.MetadataFetcher by scraping the listing page's
// meta tags. Only structured meta attributes are read; no layout-dependent
// heuristics.
type Fetcher struct {
	cfg        config.WebstoreConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewFetcher creates a Fetcher. A nil httpClient gets a default client with
// the configured timeout.
func NewFetcher(cfg config.WebstoreConfig, logger *zap.Logger, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		cfg:        cfg,
		logger:     logger.Named("webstore"),
		httpClient: httpClient,
	}
}

var userCountRe = regexp.MustCompile(`([\d,.]+\+?)\s+users`)

// Fetch retrieves the listing page and extracts a loosely-typed attribute
// map. Returns an error only for the caller to log; absence of metadata is a
// valid state.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("building listing request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching listing page: unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	attrs := metaAttributes(doc)
	meta := make(map[string]any)

	if title, ok := attrs["og:title"]; ok {
		meta["title"] = strings.TrimSuffix(title, " - Chrome Web Store")
	}
	if desc, ok := attrs["og:description"]; ok {
		meta["description"] = desc
		if m := userCountRe.FindStringSubmatch(desc); m != nil {
			meta["users"] = m[1]
		}
	}
	if rating, ok := attrs["ratingValue"]; ok {
		if v, err := strconv.ParseFloat(rating, 64); err == nil {
			meta["rating"] = v
		}
	}
	if developer, ok := attrs["author"]; ok {
		meta["developer"] = developer
	}

	if len(meta) == 0 {
		return nil, fmt.Errorf("no recognizable metadata in listing page")
	}

	f.logger.Info("Listing metadata fetched",
		zap.String("url", locator),
		zap.Int("attributes", len(meta)),
	)
	return meta, nil
}

// metaAttributes walks the document and collects <meta> property/name/itemprop
// keys mapped to their content values.
func metaAttributes(doc *html.Node) map[string]string {
	out := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var key, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "property", "name", "itemprop":
					key = a.Val
				case "content":
					content = a.Val
				}
			}
			if key != "" && content != "" {
				if _, exists := out[key]; !exists {
					out[key] = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
