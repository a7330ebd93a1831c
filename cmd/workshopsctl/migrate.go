package main

import (
	"fmt"

	"workshops/internal/config"
	"workshops/internal/db"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if path == "" {
				path = cfg.MigrationsPath
			}

			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer database.Close()

			if err := db.RunMigrations(database, path); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (defaults to MIGRATIONS_PATH)")

	return cmd
}
