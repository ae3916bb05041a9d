// Package cli implements the libmirror command-line interface.
//
// Two commands make up the tool: sync, which crawls the upstream registry
// and writes the normalized library catalog, and mirror, which downloads
// resolved library metadata artifacts for every catalog version.
//
// All commands support --verbose (-v) for debug-level logging and --config
// for a TOML configuration file. Loggers are passed through context.Context.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mcu-pkgs/libmirror/internal/config"
)

var version = "dev"

// SetVersion sets the version string displayed by --version, typically
// injected via ldflags at build time.
func SetVersion(v string) {
	version = v
}

// Execute runs the libmirror CLI and returns an error if any command fails.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "libmirror",
		Short:        "libmirror syncs a library catalog and mirrors its artifacts",
		Long:         `libmirror crawls an upstream library registry into a normalized, deterministic catalog document, and incrementally mirrors per-version metadata artifacts resolved through the registry's service description.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	root.AddCommand(newSyncCmd(&configPath))
	root.AddCommand(newMirrorCmd(&configPath))

	return root.ExecuteContext(ctx)
}

func loadConfig(path *string) (*config.Config, error) {
	return config.Load(*path)
}
