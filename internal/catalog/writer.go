package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mcu-pkgs/libmirror/internal/fsio"
)

// Validate confirms every record carries a non-empty id, source URL, and
// latest version, and that no two records share an id. Violations are fatal
// to the whole run: a discovery or overlay bug must not silently shadow a
// record.
func Validate(records []Record) error {
	seen := make(map[string]string, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record with empty id (source %q)", rec.Source.URL)
		}
		if rec.Source.URL == "" {
			return fmt.Errorf("record %q has no source", rec.ID)
		}
		if rec.Latest == "" {
			return fmt.Errorf("record %q has no latest version", rec.ID)
		}
		if prev, ok := seen[rec.ID]; ok {
			return fmt.Errorf("duplicate id %q: records from %q and %q", rec.ID, prev, rec.Source.URL)
		}
		seen[rec.ID] = rec.Source.URL
	}
	return nil
}

// Write sorts records by id, wraps them with a generation timestamp, and
// writes the catalog via temp-file-then-rename so a reader never observes a
// partial document. The serialized bytes are re-parsed before the rename.
func Write(path string, records []Record, now time.Time) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	doc := Document{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Libraries:   sorted,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing catalog: %w", err)
	}
	data = append(data, '\n')

	// Self-check: the bytes about to land on disk must parse back.
	var check Document
	if err := json.Unmarshal(data, &check); err != nil {
		return fmt.Errorf("catalog self-check failed: %w", err)
	}

	return fsio.WriteFileAtomic(path, data)
}

// Read loads a previously written catalog document.
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return &doc, nil
}
