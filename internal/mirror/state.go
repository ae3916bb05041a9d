package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mcu-pkgs/libmirror/internal/fsio"
)

// Entry records one artifact ever successfully mirrored. Entries are only
// added or overwritten in place, never deleted: pruning could destroy the
// last copy of a version the upstream registry has itself deleted.
type Entry struct {
	Owner      string `json:"owner"`
	Libname    string `json:"libname"`
	Version    string `json:"version"`
	SourceURL  string `json:"sourceUrl"`
	Path       string `json:"path"`
	SHA256     string `json:"sha256"`
	Bytes      int64  `json:"bytes"`
	MirroredAt string `json:"mirroredAt"`
}

// State is the durable, keyed record of the mirror, keyed by "id@version".
type State struct {
	GeneratedAt            string           `json:"generatedAt"`
	SourceIndexGeneratedAt string           `json:"sourceIndexGeneratedAt"`
	Artifacts              map[string]Entry `json:"artifacts"`
}

// Stats summarizes one mirror run.
type Stats struct {
	TotalCandidates        int `json:"totalCandidates"`
	Downloaded             int `json:"downloaded"`
	SkippedExisting        int `json:"skippedExisting"`
	Failed                 int `json:"failed"`
	TotalMirroredArtifacts int `json:"totalMirroredArtifacts"`
}

// Manifest is the derived, sorted array view over the state map.
type Manifest struct {
	GeneratedAt            string  `json:"generatedAt"`
	SourceIndexGeneratedAt string  `json:"sourceIndexGeneratedAt"`
	Stats                  Stats   `json:"stats"`
	Artifacts              []Entry `json:"artifacts"`
}

// LoadState reads prior mirror state. An absent file is an empty state
// (first run).
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{Artifacts: make(map[string]Entry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mirror state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing mirror state %s: %w", path, err)
	}
	if st.Artifacts == nil {
		st.Artifacts = make(map[string]Entry)
	}
	return &st, nil
}

// WriteState persists the full keyed state atomically.
func WriteState(path string, st *State, now time.Time) error {
	st.GeneratedAt = now.UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing mirror state: %w", err)
	}
	return fsio.WriteFileAtomic(path, append(data, '\n'))
}

// WriteManifest derives the manifest from state and writes it atomically.
// The manifest is a reporting view, not a second source of truth.
func WriteManifest(path string, st *State, stats Stats, now time.Time) error {
	entries := make([]Entry, 0, len(st.Artifacts))
	for _, e := range st.Artifacts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.Libname != b.Libname {
			return a.Libname < b.Libname
		}
		return a.Version < b.Version
	})

	stats.TotalMirroredArtifacts = len(entries)
	m := Manifest{
		GeneratedAt:            now.UTC().Format(time.RFC3339),
		SourceIndexGeneratedAt: st.SourceIndexGeneratedAt,
		Stats:                  stats,
		Artifacts:              entries,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing manifest: %w", err)
	}
	return fsio.WriteFileAtomic(path, append(data, '\n'))
}
