// Package pipeline wires the crawl, merge, and mirror stages into the two
// runs the CLI exposes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcu-pkgs/libmirror/client"
	"github.com/mcu-pkgs/libmirror/internal/catalog"
	"github.com/mcu-pkgs/libmirror/internal/config"
	"github.com/mcu-pkgs/libmirror/internal/crawl"
	"github.com/mcu-pkgs/libmirror/internal/overlay"
	"github.com/mcu-pkgs/libmirror/internal/scrape"
)

// SyncResult reports one catalog synchronization run.
type SyncResult struct {
	Processed int
	Skipped   []string
}

// Sync runs the catalog pipeline: discovery, per-identifier extraction,
// overlay merge, validation, and the deterministic catalog write. Per-item
// extraction and normalization failures are recorded as skipped; everything
// else is fatal. With dryRun the catalog is not written.
func Sync(ctx context.Context, cfg *config.Config, c *client.Client, logger *log.Logger, dryRun bool) (*SyncResult, error) {
	crawler := crawl.NewCrawler(c, cfg.Registry.ListingURL, logger)
	ids, err := crawler.Discover(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("discovery finished", "libraries", len(ids))

	ov, err := overlay.Load(cfg.Paths.Overlay)
	if err != nil {
		return nil, err
	}
	for id := range ov {
		if !containsID(ids, id) {
			logger.Debug("overlay entry has no discovered record, ignoring", "id", id)
		}
	}

	detailer := crawl.NewDetailer(c, scrape.RegexParser{}, cfg.Registry.ListingURL, cfg.Registry.Provider)

	result := &SyncResult{}
	var records []catalog.Record
	for _, id := range ids {
		raw, err := detailer.Fetch(ctx, id)
		if err != nil {
			logger.Warn("skipping library", "id", id, "err", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}

		rec, err := catalog.NormalizeWithRetry(raw, ov[id])
		if err != nil {
			logger.Warn("skipping unnormalizable library", "id", id, "err", err)
			result.Skipped = append(result.Skipped, id)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no library records survived extraction (%d skipped)", len(result.Skipped))
	}

	if err := catalog.Validate(records); err != nil {
		return nil, err
	}

	result.Processed = len(records)
	if dryRun {
		logger.Info("dry run, catalog not written", "records", len(records))
		return result, nil
	}

	if err := catalog.Write(cfg.Paths.Catalog, records, time.Now()); err != nil {
		return nil, err
	}
	return result, nil
}

func containsID(ids []string, id string) bool {
	for _, it := range ids {
		if it == id {
			return true
		}
	}
	return false
}
