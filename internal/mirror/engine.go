package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcu-pkgs/libmirror/fetch"
	"github.com/mcu-pkgs/libmirror/internal/catalog"
	"github.com/mcu-pkgs/libmirror/internal/fsio"
	"github.com/mcu-pkgs/libmirror/internal/ident"
)

// Engine downloads missing artifacts for every (identifier, version)
// candidate the catalog declares, resuming from prior state.
type Engine struct {
	fetcher *fetch.Fetcher
	dir     string
	logger  *log.Logger
	now     func() time.Time
}

// NewEngine creates a mirror engine writing under dir.
func NewEngine(f *fetch.Fetcher, dir string, logger *log.Logger) *Engine {
	return &Engine{fetcher: f, dir: dir, logger: logger, now: time.Now}
}

// Run walks the catalog and mirrors every missing artifact. Per-candidate
// failures are counted and logged, never fatal; state is mutated in place,
// only ever adding or overwriting entries.
//
// A state entry whose file is gone from disk is stale: metadata must never
// claim success for content that is not actually present, so the candidate
// is re-downloaded.
func (e *Engine) Run(ctx context.Context, doc *catalog.Document, st *State, op *DownloadOp) Stats {
	var stats Stats

	for _, rec := range doc.Libraries {
		id, ok := ident.Normalize(rec.ID)
		if !ok {
			e.logger.Warn("skipping record with invalid id", "id", rec.ID)
			continue
		}
		owner, libname := ident.Split(id)

		for _, raw := range rec.Versions {
			version := NormalizeVersion(raw)
			if version == "" {
				continue
			}
			key := id + "@" + version
			stats.TotalCandidates++

			if prev, ok := st.Artifacts[key]; ok && prev.Path != "" {
				if fileExists(filepath.Join(e.dir, filepath.FromSlash(prev.Path))) {
					stats.SkippedExisting++
					continue
				}
				e.logger.Warn("state entry has no file on disk, re-downloading", "key", key, "path", prev.Path)
			}

			if err := e.mirrorOne(ctx, st, op, key, owner, libname, version); err != nil {
				stats.Failed++
				e.logger.Warn("artifact mirror failed", "key", key, "err", err)
				continue
			}
			stats.Downloaded++
		}
	}

	stats.TotalMirroredArtifacts = len(st.Artifacts)
	return stats
}

func (e *Engine) mirrorOne(ctx context.Context, st *State, op *DownloadOp, key, owner, libname, version string) error {
	sourceURL := op.URL(owner, libname, version)
	payload, err := e.fetcher.FetchJSON(ctx, sourceURL)
	if err != nil {
		return err
	}

	data, err := canonicalJSON(payload)
	if err != nil {
		return fmt.Errorf("serializing artifact: %w", err)
	}

	rel := path.Join(owner, libname, version+".json")
	if err := fsio.WriteFileAtomic(filepath.Join(e.dir, filepath.FromSlash(rel)), data); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	if prev, ok := st.Artifacts[key]; ok && prev.SHA256 != "" && prev.SHA256 != digest {
		// Recovering a lost file is indistinguishable from upstream silently
		// republishing the version; surface it rather than overwrite quietly.
		e.logger.Warn("artifact content changed since last mirror",
			"key", key, "previous", prev.SHA256, "current", digest)
	}

	st.Artifacts[key] = Entry{
		Owner:      owner,
		Libname:    libname,
		Version:    version,
		SourceURL:  sourceURL,
		Path:       rel,
		SHA256:     digest,
		Bytes:      int64(len(data)),
		MirroredAt: e.now().UTC().Format(time.RFC3339),
	}
	return nil
}

// NormalizeVersion gives a version string its leading marker. The literal
// "latest" sentinel passes through unchanged.
func NormalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "latest" {
		return v
	}
	if v[0] == 'v' || v[0] == 'V' {
		return "v" + v[1:]
	}
	return "v" + v
}

// canonicalJSON serializes a decoded payload deterministically: object keys
// sort, and the hash is computed over the exact bytes written.
func canonicalJSON(payload any) ([]byte, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
