package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/internlink/backend/internal/config"
	"github.com/internlink/backend/internal/logger"
)

var version = "dev"

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:          "internlink",
	Short:        "InternLink learner progression service",
	Long:         "InternLink backend: XP ledger, levels, badges and course completion for learners.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		c, err := config.LoadOrDefault(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		l, err := logger.New(c.Logging.Mode)
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to YAML config file (defaults are used when missing)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Path to a .env file loaded before the config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(levelsCmd)
}
