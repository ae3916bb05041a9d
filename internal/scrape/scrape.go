// Package scrape extracts structured fields out of registry HTML pages.
//
// The registry publishes no structured metadata endpoint for its listing and
// detail surfaces, so extraction is pattern matching over raw page text. The
// Parser interface keeps that fragile, registry-specific matching swappable
// without touching the crawl orchestration.
package scrape

import (
	"regexp"
	"sort"
	"strings"
)

// Parser extracts catalog fields from raw page text.
type Parser interface {
	// Summary returns the human-readable description, or "".
	Summary(page string) string
	// LatestDate returns the most recent ISO calendar date in the page, or "".
	LatestDate(page string) string
	// License returns a license token, or "".
	License(page string) string
	// Versions returns deduplicated version tokens found in the page,
	// preferring tokens immediately preceded by the identifier itself.
	Versions(page, id string) []string
}

// RegexParser is the default Parser implementation.
type RegexParser struct{}

var (
	metaDescRe  = regexp.MustCompile(`(?is)<meta\s+name=["']description["']\s+content=["']([^"']*)["']`)
	metaDescRe2 = regexp.MustCompile(`(?is)<meta\s+content=["']([^"']*)["']\s+name=["']description["']`)
	isoDateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	licenseRe   = regexp.MustCompile(`(?i)license:\s*(?:<[^>]*>\s*)?([A-Za-z0-9][A-Za-z0-9 .+-]*)`)
	versionRe   = regexp.MustCompile(`\bv?(\d+\.\d+\.\d+(?:-[0-9A-Za-z][0-9A-Za-z.-]*)?)\b`)
)

// Display strings the registry uses for licenses, most specific first.
var knownLicenses = []string{
	"Apache-2.0", "Apache 2.0",
	"BSD-3-Clause", "BSD-2-Clause",
	"GPL-3.0", "GPL 3.0", "GPL-2.0",
	"LGPL-2.1", "LGPL",
	"MPL-2.0",
	"MIT",
	"BSD",
	"GPL",
	"ISC",
	"Unlicense",
}

func (RegexParser) Summary(page string) string {
	for _, re := range []*regexp.Regexp{metaDescRe, metaDescRe2} {
		if m := re.FindStringSubmatch(page); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func (RegexParser) LatestDate(page string) string {
	// ISO dates sort correctly as strings, so the lexicographic max is the
	// most recent date on the page.
	latest := ""
	for _, d := range isoDateRe.FindAllString(page, -1) {
		if d > latest {
			latest = d
		}
	}
	return latest
}

func (RegexParser) License(page string) string {
	if m := licenseRe.FindStringSubmatch(page); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, lic := range knownLicenses {
		if strings.Contains(page, lic) {
			return lic
		}
	}
	return ""
}

func (RegexParser) Versions(page, id string) []string {
	// Tokens qualified by the identifier beat bare version-looking tokens,
	// which on a busy page can belong to anything.
	qualified := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(id) + `[\s@/:]{0,3}v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z][0-9A-Za-z.-]*)?)\b`)

	var tokens []string
	for _, m := range qualified.FindAllStringSubmatch(page, -1) {
		tokens = append(tokens, m[1])
	}
	if len(tokens) == 0 {
		for _, m := range versionRe.FindAllStringSubmatch(page, -1) {
			tokens = append(tokens, m[1])
		}
	}

	return dedupe(tokens)
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
