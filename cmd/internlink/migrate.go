package main

import (
	"github.com/spf13/cobra"

	"github.com/internlink/backend/internal/config"
	"github.com/internlink/backend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.Driver == config.DriverMemory {
			log.Info("memory driver has no schema to migrate")
			return nil
		}
		s, err := store.Open(cfg.Database.Driver, cfg.Database.URL, log)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("schema migrated", "driver", cfg.Database.Driver)
		return nil
	},
}
