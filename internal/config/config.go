// Package config holds the immutable run configuration. Every location the
// pipelines touch is a fixed convention carried in the defaults; a TOML file
// and a handful of flags can override them.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/mcu-pkgs/libmirror/client"
)

// Registry locates the upstream registry's scraping surfaces.
type Registry struct {
	ListingURL string `toml:"listing_url"`
	Provider   string `toml:"provider"`
}

// Paths locates the produced catalog and the consumed overlay.
type Paths struct {
	Catalog string `toml:"catalog"`
	Overlay string `toml:"overlay"`
}

// Mirror locates the artifact mirror and its state documents.
type Mirror struct {
	SwaggerURL string `toml:"swagger_url"`
	Dir        string `toml:"dir"`
	StatePath  string `toml:"state_path"`
	Manifest   string `toml:"manifest_path"`
}

// HTTP tunes the fetch layer.
type HTTP struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	BaseDelayMS    int    `toml:"base_delay_ms"`
	UserAgent      string `toml:"user_agent"`
}

// Config is the full run configuration.
type Config struct {
	Registry Registry `toml:"registry"`
	Paths    Paths    `toml:"paths"`
	Mirror   Mirror   `toml:"mirror"`
	HTTP     HTTP     `toml:"http"`
}

// Default returns the fixed-convention configuration.
func Default() *Config {
	return &Config{
		Registry: Registry{
			ListingURL: "https://libhub.dev/libraries/",
			Provider:   "libhub",
		},
		Paths: Paths{
			Catalog: "data/libraries.json",
			Overlay: "data/overrides.json",
		},
		Mirror: Mirror{
			SwaggerURL: "https://libhub.dev/swagger/",
			Dir:        "mirror",
			StatePath:  "mirror/state.json",
			Manifest:   "mirror/manifest.json",
		},
		HTTP: HTTP{
			TimeoutSeconds: 20,
			MaxRetries:     4,
			BaseDelayMS:    500,
			UserAgent:      "libmirror/1.0",
		},
	}
}

// Load reads a TOML config file over the defaults. An empty path or an
// absent file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipelines cannot run with.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"registry.listing_url": c.Registry.ListingURL,
		"mirror.swagger_url":   c.Mirror.SwaggerURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: %q is not an absolute URL", name, raw)
		}
	}
	if c.Paths.Catalog == "" {
		return fmt.Errorf("paths.catalog must not be empty")
	}
	if c.Mirror.Dir == "" {
		return fmt.Errorf("mirror.dir must not be empty")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be positive")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must not be negative")
	}
	return nil
}

// NewClient builds the fetch-layer client from the HTTP section.
func (c *Config) NewClient() *client.Client {
	return client.New(
		client.WithTimeout(time.Duration(c.HTTP.TimeoutSeconds)*time.Second),
		client.WithMaxRetries(c.HTTP.MaxRetries),
		client.WithBaseDelay(time.Duration(c.HTTP.BaseDelayMS)*time.Millisecond),
		client.WithUserAgent(c.HTTP.UserAgent),
	)
}
