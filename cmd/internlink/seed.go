package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/internlink/backend/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the course catalog and optionally a demo learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := buildApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := seed.Catalog(ctx, a.store, cfg.Courses, log); err != nil {
			return err
		}

		steps, _ := cmd.Flags().GetInt("demo-steps")
		if steps <= 0 {
			return nil
		}
		raw, _ := cmd.Flags().GetString("demo-user")
		userID := seed.DemoUserID
		if raw != "" {
			if userID, err = uuid.Parse(raw); err != nil {
				return err
			}
		}
		catalog := cfg.Courses
		if len(catalog) == 0 {
			catalog = seed.DefaultCatalog()
		}
		gen := seed.NewGenerator(a.engine, a.courses, catalog, userID, 1, log)
		if err := gen.Backfill(ctx, steps); err != nil {
			return err
		}
		log.Info("demo learner seeded", "user_id", userID, "steps", steps)
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("demo-steps", 0, "Number of simulated learner actions to record (0 skips the demo learner)")
	seedCmd.Flags().String("demo-user", "", "Demo learner UUID (defaults to the fixed demo ID)")
}
