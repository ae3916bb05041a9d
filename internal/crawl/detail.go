package crawl

import (
	"context"
	"fmt"

	"github.com/mcu-pkgs/libmirror/client"
	"github.com/mcu-pkgs/libmirror/internal/catalog"
	"github.com/mcu-pkgs/libmirror/internal/scrape"
)

// Detailer fetches one identifier's detail page and extracts a raw record.
type Detailer struct {
	client   *client.Client
	parser   scrape.Parser
	baseURL  string
	provider string
}

// NewDetailer creates a detail extractor. Detail pages live under the
// listing URL at {base}/{owner}/{name}/.
func NewDetailer(c *client.Client, p scrape.Parser, listingURL, provider string) *Detailer {
	return &Detailer{
		client:   c,
		parser:   p,
		baseURL:  trimSlash(listingURL),
		provider: provider,
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// Fetch retrieves and parses the detail page for one normalized identifier.
// Errors here are per-identifier: the caller records the id as skipped and
// moves on.
func (d *Detailer) Fetch(ctx context.Context, id string) (map[string]any, error) {
	pageURL := fmt.Sprintf("%s/%s/", d.baseURL, id)
	page, err := d.client.GetHTML(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching detail page for %s: %w", id, err)
	}

	versions := d.parser.Versions(page, id)
	catalog.SortVersionsDesc(versions)

	latest := "latest"
	if len(versions) > 0 {
		latest = versions[0]
	} else {
		versions = []string{"latest"}
	}

	raw := map[string]any{
		"id": id,
		"source": map[string]any{
			"provider": d.provider,
			"url":      pageURL,
		},
		"latest":   latest,
		"versions": toAnySlice(versions),
	}
	if s := d.parser.Summary(page); s != "" {
		raw["summary"] = s
	}
	if date := d.parser.LatestDate(page); date != "" {
		raw["updatedAt"] = date
	}
	if lic := d.parser.License(page); lic != "" {
		raw["license"] = lic
	}
	return raw, nil
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
