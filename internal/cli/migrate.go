package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"atas/api/internal/store"
)

func NewMigrateCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd, deps)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := store.ApplyMigrations(cmd.Context(), db, store.MigrationsFS(deps.Config.MigrationsDir))
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", version)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd, deps)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := store.RollbackMigration(cmd.Context(), db, store.MigrationsFS(deps.Config.MigrationsDir))
			if err != nil {
				return err
			}
			if version == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", version)
			return nil
		},
	})
	return cmd
}

func openDatabase(cmd *cobra.Command, deps *Dependencies) (*sql.DB, error) {
	if deps.Config.DatabaseURL == "" {
		return nil, errors.New("database url not configured: set database_url or ATAS_DATABASE_URL")
	}
	return store.Open(cmd.Context(), deps.Config.DatabaseURL)
}
