package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/mcu-pkgs/libmirror/client"
	"github.com/mcu-pkgs/libmirror/internal/catalog"
	"github.com/mcu-pkgs/libmirror/internal/config"
	"github.com/mcu-pkgs/libmirror/internal/mirror"
)

// registryFixture is a fake registry: listing page, detail pages, service
// description, and artifact downloads, all behind one server.
func registryFixture(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/libraries/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/libraries/" && r.URL.RawQuery == "":
			_, _ = io.WriteString(w, `<a href="/libraries/acme/servo/">servo</a>
				<a href="/libraries/beta/motor/">motor</a>`)
		case r.URL.Path == "/libraries/acme/servo/":
			_, _ = io.WriteString(w, `<meta name="description" content="Servo driver.">
				<p>License: MIT</p><p>2024-06-01</p>
				<p>acme/servo v1.2.0</p><p>acme/servo v1.10.0</p>`)
		case r.URL.Path == "/libraries/beta/motor/":
			_, _ = io.WriteString(w, `<meta name="description" content="Motor control.">
				<p>beta/motor 0.3.0</p>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"basePath": "/api/v1",
			"paths": {
				"/lib/{owner}/{libname}/{version}": {
					"get": {"operationId": "libraryVersionDownload"}
				}
			}
		}`)
	})

	mux.HandleFunc("/api/v1/lib/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, fmt.Sprintf(`{"path": %q}`, r.URL.Path))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func fixtureConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Registry.ListingURL = serverURL + "/libraries/"
	cfg.Mirror.SwaggerURL = serverURL + "/swagger/"
	cfg.Paths.Catalog = filepath.Join(dir, "libraries.json")
	cfg.Paths.Overlay = filepath.Join(dir, "overrides.json")
	cfg.Mirror.Dir = filepath.Join(dir, "mirror")
	cfg.Mirror.StatePath = filepath.Join(dir, "mirror", "state.json")
	cfg.Mirror.Manifest = filepath.Join(dir, "mirror", "manifest.json")
	return cfg
}

func fastClient() *client.Client {
	return client.New(client.WithMaxRetries(0), client.WithBaseDelay(time.Millisecond))
}

func TestSyncThenMirror(t *testing.T) {
	server := registryFixture(t)
	cfg := fixtureConfig(t, server.URL)
	logger := log.New(io.Discard)
	ctx := context.Background()

	// Overlay curates one record.
	overlayJSON := `{"acme/servo": {"tags": ["motor", "pwm"], "supportStatus": "stable"}}`
	require.NoError(t, os.WriteFile(cfg.Paths.Overlay, []byte(overlayJSON), 0o644))

	res, err := Sync(ctx, cfg, fastClient(), logger, false)
	require.NoError(t, err)
	require.Equal(t, 2, res.Processed)
	require.Empty(t, res.Skipped)

	doc, err := catalog.Read(cfg.Paths.Catalog)
	require.NoError(t, err)
	require.Len(t, doc.Libraries, 2)
	require.Equal(t, "acme/servo", doc.Libraries[0].ID)
	require.Equal(t, []string{"motor", "pwm"}, doc.Libraries[0].Tags)
	require.Equal(t, "stable", doc.Libraries[0].SupportStatus)
	require.Equal(t, "1.10.0", doc.Libraries[0].Latest)
	require.Equal(t, "beta/motor", doc.Libraries[1].ID)

	stats, err := Mirror(ctx, cfg, fastClient(), logger)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalCandidates) // two servo versions + one motor
	require.Equal(t, 3, stats.Downloaded)
	require.Zero(t, stats.Failed)

	require.FileExists(t, filepath.Join(cfg.Mirror.Dir, "acme", "servo", "v1.10.0.json"))
	require.FileExists(t, filepath.Join(cfg.Mirror.Dir, "acme", "servo", "v1.2.0.json"))
	require.FileExists(t, filepath.Join(cfg.Mirror.Dir, "beta", "motor", "v0.3.0.json"))

	// Second mirror run skips everything.
	stats, err = Mirror(ctx, cfg, fastClient(), logger)
	require.NoError(t, err)
	require.Equal(t, 3, stats.SkippedExisting)
	require.Zero(t, stats.Downloaded)

	st, err := mirror.LoadState(cfg.Mirror.StatePath)
	require.NoError(t, err)
	require.Len(t, st.Artifacts, 3)
	require.Equal(t, doc.GeneratedAt, st.SourceIndexGeneratedAt)

	data, err := os.ReadFile(cfg.Mirror.Manifest)
	require.NoError(t, err)
	var m mirror.Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	require.Len(t, m.Artifacts, 3)
	require.Equal(t, 3, m.Stats.TotalMirroredArtifacts)
}

func TestSyncDryRun(t *testing.T) {
	server := registryFixture(t)
	cfg := fixtureConfig(t, server.URL)

	res, err := Sync(context.Background(), cfg, fastClient(), log.New(io.Discard), true)
	require.NoError(t, err)
	require.Equal(t, 2, res.Processed)
	require.NoFileExists(t, cfg.Paths.Catalog)
}

func TestSyncMalformedOverlayIsFatal(t *testing.T) {
	server := registryFixture(t)
	cfg := fixtureConfig(t, server.URL)
	require.NoError(t, os.WriteFile(cfg.Paths.Overlay, []byte(`42`), 0o644))

	_, err := Sync(context.Background(), cfg, fastClient(), log.New(io.Discard), false)
	require.Error(t, err)
}

func TestMirrorWithoutCatalogIsFatal(t *testing.T) {
	server := registryFixture(t)
	cfg := fixtureConfig(t, server.URL)

	_, err := Mirror(context.Background(), cfg, fastClient(), log.New(io.Discard))
	require.Error(t, err)
}
