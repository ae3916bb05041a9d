package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// normalizeAttempts bounds retries of a single record's normalization before
// the identifier goes on the skip list.
const normalizeAttempts = 3

var boardStatuses = map[string]bool{
	StatusWorking:  true,
	StatusBroken:   true,
	StatusUntested: true,
}

var supportStatuses = map[string]bool{
	SupportStable:       true,
	SupportExperimental: true,
	SupportDeprecated:   true,
}

var qualityFlags = []string{"hasExamples", "hasReadme", "maintainerVerified"}

// NormalizeRecord merges the overlay entry onto the discovered record
// (overlay wins) and re-derives every output field from the merged result.
// A nil overlay means no overlay entry exists for this identifier.
func NormalizeRecord(discovered, overlay map[string]any) (Record, error) {
	merged := discovered
	if overlay != nil {
		merged = Merge(discovered, overlay)
	}

	id := asString(merged["id"])
	if id == "" {
		return Record{}, fmt.Errorf("record has no id")
	}

	rec := Record{ID: id}

	if src, ok := merged["source"].(map[string]any); ok {
		rec.Source = Source{
			Provider: asString(src["provider"]),
			URL:      asString(src["url"]),
		}
	}

	// latest: merged value, else the originally discovered value, else the
	// sentinel.
	latest := asString(merged["latest"])
	if latest == "" {
		latest = asString(discovered["latest"])
	}
	if latest == "" {
		latest = "latest"
	}
	rec.Latest = latest

	versions := stringSet(merged["versions"])
	if !contains(versions, latest) {
		versions = append(versions, latest)
	}
	SortVersionsDesc(versions)
	if len(versions) == 0 {
		versions = []string{latest}
	}
	rec.Versions = versions

	rec.Summary = asString(merged["summary"])
	rec.UpdatedAt = asString(merged["updatedAt"])
	rec.License = asString(merged["license"])

	rec.Tags = stringSet(merged["tags"])
	rec.Interfaces = stringSet(merged["interfaces"])
	rec.MCU = stringSet(merged["mcu"])

	rec.BoardCompatibility = normalizeBoards(merged["boardCompatibility"])
	rec.CompatibilitySummary = normalizeSummary(merged["compatibilitySummary"], rec.BoardCompatibility)

	if status := asString(merged["supportStatus"]); supportStatuses[status] {
		rec.SupportStatus = status
	}

	rec.Quality = normalizeQuality(merged)

	return rec, nil
}

// NormalizeWithRetry retries normalization a small fixed number of times
// before giving up. This guards against transient non-determinism in the
// merge step without masking a genuinely malformed record forever.
func NormalizeWithRetry(discovered, overlay map[string]any) (Record, error) {
	var lastErr error
	for attempt := 0; attempt < normalizeAttempts; attempt++ {
		rec, err := NormalizeRecord(discovered, overlay)
		if err == nil {
			return rec, nil
		}
		lastErr = err
	}
	return Record{}, lastErr
}

// normalizeBoards keeps only entries with a non-empty board identifier and a
// recognized status. Unrecognized statuses drop that board's entry rather
// than failing the record.
func normalizeBoards(v any) map[string]BoardSupport {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}

	out := make(map[string]BoardSupport)
	for board, raw := range m {
		board = strings.TrimSpace(board)
		if board == "" {
			continue
		}
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		status := asString(entry["status"])
		if !boardStatuses[status] {
			continue
		}
		out[board] = BoardSupport{Status: status, Notes: asString(entry["notes"])}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeSummary uses an explicit merged summary when it names at least one
// board in any list, and otherwise derives the partition fresh from the
// board compatibility map.
func normalizeSummary(v any, boards map[string]BoardSupport) *CompatibilitySummary {
	if m, ok := v.(map[string]any); ok {
		working := stringSet(m["workingBoards"])
		broken := stringSet(m["brokenBoards"])
		untested := stringSet(m["untestedBoards"])
		if len(working)+len(broken)+len(untested) > 0 {
			return &CompatibilitySummary{
				WorkingBoards:  orEmpty(working),
				BrokenBoards:   orEmpty(broken),
				UntestedBoards: orEmpty(untested),
			}
		}
	}

	if len(boards) == 0 {
		return nil
	}

	sum := &CompatibilitySummary{
		WorkingBoards:  []string{},
		BrokenBoards:   []string{},
		UntestedBoards: []string{},
	}
	for board, support := range boards {
		switch support.Status {
		case StatusWorking:
			sum.WorkingBoards = append(sum.WorkingBoards, board)
		case StatusBroken:
			sum.BrokenBoards = append(sum.BrokenBoards, board)
		case StatusUntested:
			sum.UntestedBoards = append(sum.UntestedBoards, board)
		}
	}
	sort.Strings(sum.WorkingBoards)
	sort.Strings(sum.BrokenBoards)
	sort.Strings(sum.UntestedBoards)
	return sum
}

// normalizeQuality resolves the boolean quality flags from either a nested
// quality map or a top-level legacy field of the same name. A flag is
// included only if it resolved to a genuine boolean. Unrecognized keys of
// the nested map pass through unchanged.
func normalizeQuality(merged map[string]any) map[string]any {
	out := make(map[string]any)
	nested, _ := merged["quality"].(map[string]any)

	recognized := make(map[string]bool, len(qualityFlags))
	for _, flag := range qualityFlags {
		recognized[flag] = true
	}

	for k, v := range nested {
		if !recognized[k] {
			out[k] = v
		}
	}

	for _, flag := range qualityFlags {
		if b, ok := nested[flag].(bool); ok {
			out[flag] = b
			continue
		}
		if b, ok := merged[flag].(bool); ok {
			out[flag] = b
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// stringSet coerces a JSON value into a deduplicated, trimmed, sorted slice
// of strings. Case is preserved.
func stringSet(v any) []string {
	var items []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = t
	default:
		return nil
	}

	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}
