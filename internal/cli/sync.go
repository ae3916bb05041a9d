package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcu-pkgs/libmirror/internal/pipeline"
)

// newSyncCmd creates the "sync" command: crawl the registry, merge the
// overlay, and write the catalog.
func newSyncCmd(configPath *string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the library catalog from the upstream registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := loggerFromContext(cmd.Context())

			res, err := pipeline.Sync(cmd.Context(), cfg, cfg.NewClient(), logger, dryRun)
			if err != nil {
				return err
			}

			logger.Info("sync finished",
				"processed", res.Processed,
				"skipped", len(res.Skipped),
				"catalog", cfg.Paths.Catalog)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the pipeline without writing the catalog")
	return cmd
}
