package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.MigrationsPath
		if migrationsPath != "" {
			path = migrationsPath
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied from %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().StringVar(&migrationsPath, "path", "", "Migrations directory (defaults to MIGRATIONS_PATH).")
}
