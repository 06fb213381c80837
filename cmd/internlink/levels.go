package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "Print the configured level table",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := cfg.LevelTable()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LEVEL\tMIN XP\tNAME\tREWARD")
		for _, l := range table.Levels() {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", l.Level, l.MinXP, l.Name, l.Reward)
		}
		return w.Flush()
	},
}
