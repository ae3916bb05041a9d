package mirror

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadStateAbsent(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	require.NotNil(t, st.Artifacts)
	require.Empty(t, st.Artifacts)
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	st := &State{
		SourceIndexGeneratedAt: "2026-08-01T00:00:00Z",
		Artifacts: map[string]Entry{
			"acme/servo@v1.0.0": {
				Owner: "acme", Libname: "servo", Version: "v1.0.0",
				Path: "acme/servo/v1.0.0.json", SHA256: "abc", Bytes: 12,
			},
		},
	}
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteState(path, st, now))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	require.Equal(t, "2026-08-02T00:00:00Z", loaded.GeneratedAt)
	require.Equal(t, st.Artifacts, loaded.Artifacts)
}

func TestLoadStateMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := LoadState(path)
	require.Error(t, err)
}

func TestWriteManifestSorted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")

	st := &State{
		SourceIndexGeneratedAt: "2026-08-01T00:00:00Z",
		Artifacts: map[string]Entry{
			"zeta/lib@v1.0.0":    {Owner: "zeta", Libname: "lib", Version: "v1.0.0"},
			"acme/servo@v2.0.0":  {Owner: "acme", Libname: "servo", Version: "v2.0.0"},
			"acme/servo@v1.0.0":  {Owner: "acme", Libname: "servo", Version: "v1.0.0"},
			"acme/driver@v1.0.0": {Owner: "acme", Libname: "driver", Version: "v1.0.0"},
		},
	}

	stats := Stats{TotalCandidates: 4, Downloaded: 1, SkippedExisting: 3}
	now := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, WriteManifest(path, st, stats, now))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	require.Equal(t, "2026-08-01T00:00:00Z", m.SourceIndexGeneratedAt)
	require.Equal(t, 4, m.Stats.TotalMirroredArtifacts)

	var keys []string
	for _, e := range m.Artifacts {
		keys = append(keys, e.Owner+"/"+e.Libname+"@"+e.Version)
	}
	require.Equal(t, []string{
		"acme/driver@v1.0.0",
		"acme/servo@v1.0.0",
		"acme/servo@v2.0.0",
		"zeta/lib@v1.0.0",
	}, keys)
}
