// Package cli implements atactl, the operator tool for drafts, convocations,
// local processing runs and database migrations.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"atas/api/internal/config"
	"atas/api/internal/logging"
)

type Dependencies struct {
	Config config.CLI
	Logger *zap.Logger
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "atactl",
		Short:         "Operate on committee minutes from the command line",
		Long:          "atactl imports and renders minutes drafts, builds convocations, runs the processing pipeline locally and migrates the database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadCLI(configPath)
			if err != nil {
				return err
			}
			deps.Config = cfg
			deps.Logger = logging.OrNop(deps.Logger)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	rootCmd.AddCommand(NewImportCmd(deps))
	rootCmd.AddCommand(NewExportCmd(deps))
	rootCmd.AddCommand(NewRenderCmd(deps))
	rootCmd.AddCommand(NewConvocationCmd(deps))
	rootCmd.AddCommand(NewProcessCmd(deps))
	rootCmd.AddCommand(NewMigrateCmd(deps))

	return rootCmd
}
