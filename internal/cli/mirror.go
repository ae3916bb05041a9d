package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcu-pkgs/libmirror/internal/pipeline"
)

// newMirrorCmd creates the "mirror" command: download every missing
// artifact the catalog names and persist the mirror state and manifest.
func newMirrorCmd(configPath *string) *cobra.Command {
	var swaggerURL string

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror per-version metadata artifacts for the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if swaggerURL != "" {
				cfg.Mirror.SwaggerURL = swaggerURL
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			logger := loggerFromContext(cmd.Context())

			stats, err := pipeline.Mirror(cmd.Context(), cfg, cfg.NewClient(), logger)
			if err != nil {
				return err
			}

			logger.Info("mirror finished",
				"candidates", stats.TotalCandidates,
				"downloaded", stats.Downloaded,
				"skippedExisting", stats.SkippedExisting,
				"failed", stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&swaggerURL, "swagger-url", "", "override the service description URL")
	return cmd
}
