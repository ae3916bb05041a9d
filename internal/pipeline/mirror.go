package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcu-pkgs/libmirror/client"
	"github.com/mcu-pkgs/libmirror/fetch"
	"github.com/mcu-pkgs/libmirror/internal/catalog"
	"github.com/mcu-pkgs/libmirror/internal/config"
	"github.com/mcu-pkgs/libmirror/internal/mirror"
)

// Mirror runs the artifact mirror pipeline: load catalog and prior state,
// resolve the download operation from the service description, download
// missing artifacts, persist state and manifest.
func Mirror(ctx context.Context, cfg *config.Config, c *client.Client, logger *log.Logger) (*mirror.Stats, error) {
	doc, err := catalog.Read(cfg.Paths.Catalog)
	if err != nil {
		return nil, err
	}

	st, err := mirror.LoadState(cfg.Mirror.StatePath)
	if err != nil {
		return nil, err
	}

	op, err := mirror.ResolveDownloadOp(ctx, c, cfg.Mirror.SwaggerURL)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved download operation", "method", op.Method, "template", op.Template)

	fetcher := fetch.NewFetcher(c)
	engine := mirror.NewEngine(fetcher, cfg.Mirror.Dir, logger)
	stats := engine.Run(ctx, doc, st, op)

	st.SourceIndexGeneratedAt = doc.GeneratedAt
	now := time.Now()
	if err := mirror.WriteState(cfg.Mirror.StatePath, st, now); err != nil {
		return nil, err
	}
	if err := mirror.WriteManifest(cfg.Mirror.Manifest, st, stats, now); err != nil {
		return nil, err
	}

	for host, state := range fetcher.BreakerStates() {
		if state == "open" {
			logger.Warn("circuit breaker still open", "host", host)
		}
	}
	return &stats, nil
}
