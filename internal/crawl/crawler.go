// Package crawl discovers library identifiers from the registry's paginated
// listing surface and extracts per-identifier detail records.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mcu-pkgs/libmirror/client"
	"github.com/mcu-pkgs/libmirror/internal/ident"
)

var hrefRe = regexp.MustCompile(`href=["']([^"']+)["']`)

// Crawler paginates the listing surface and collects detail-page links.
type Crawler struct {
	client   *client.Client
	baseURL  string
	basePath string
	logger   *log.Logger
}

// NewCrawler creates a crawler over the given listing URL.
func NewCrawler(c *client.Client, listingURL string, logger *log.Logger) *Crawler {
	base := strings.TrimSuffix(listingURL, "/")
	basePath := ""
	if u, err := url.Parse(base); err == nil {
		basePath = strings.TrimSuffix(u.Path, "/")
	}
	return &Crawler{client: c, baseURL: base, basePath: basePath, logger: logger}
}

// Discover crawls listing pages until exhaustion and returns the sorted set
// of discovered identifiers.
//
// The crawl stops when a page yields no identifiers, when every identifier
// on a page was already seen (a registry that loops rather than 404s), or
// when a later page comes back not-found. A first-page failure is fatal, as
// is an empty overall result: discovering nothing means the crawl is broken,
// not that the registry is empty.
func (c *Crawler) Discover(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		html, err := c.fetchPage(ctx, page)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetching first listing page: %w", err)
			}
			if errors.Is(err, client.ErrNotFound) {
				c.logger.Debug("listing exhausted", "page", page)
				break
			}
			return nil, fmt.Errorf("fetching listing page %d: %w", page, err)
		}

		ids := c.extractIDs(html)
		if len(ids) == 0 {
			break
		}

		anyNew := false
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				anyNew = true
			}
		}
		c.logger.Debug("listing page crawled", "page", page, "found", len(ids), "total", len(seen))
		if !anyNew {
			// Every id repeated from a prior page: the registry loops.
			break
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("discovered no libraries at %s", c.baseURL)
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// fetchPage tries the page's candidate URLs in order. A 404 moves on to the
// next candidate; only the last candidate's 404 propagates.
func (c *Crawler) fetchPage(ctx context.Context, page int) (string, error) {
	var lastErr error
	for _, candidate := range c.pageCandidates(page) {
		html, err := c.client.GetHTML(ctx, candidate)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if errors.Is(err, client.ErrNotFound) {
			continue
		}
		return "", err
	}
	return "", lastErr
}

func (c *Crawler) pageCandidates(page int) []string {
	if page == 1 {
		return []string{c.baseURL + "/"}
	}
	return []string{
		fmt.Sprintf("%s/?page=%d", c.baseURL, page),
		fmt.Sprintf("%s/page/%d/", c.baseURL, page),
	}
}

// extractIDs pulls identifiers out of anchor references to detail pages,
// deduplicated within the page.
func (c *Crawler) extractIDs(html string) []string {
	seen := make(map[string]bool)
	var ids []string

	for _, m := range hrefRe.FindAllStringSubmatch(html, -1) {
		href := m[1]
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		p := u.Path
		if !strings.HasPrefix(p, c.basePath+"/") {
			continue
		}
		rest := strings.Trim(strings.TrimPrefix(p, c.basePath), "/")
		id, ok := ident.Normalize(rest)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
