package main

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Re-derive a learner's progression from the XP ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("user")
		userID, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := buildApp(ctx, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.engine.Recompute(ctx, userID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	recomputeCmd.Flags().String("user", "", "Learner UUID")
	_ = recomputeCmd.MarkFlagRequired("user")
}
