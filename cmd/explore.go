package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	exInput     string
	exLog       string
	exThreshold int
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Profile every column of the CSV and write the exploration report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		if f.Changed("input") {
			cfg.CSVPath = exInput
		}
		if f.Changed("log") {
			cfg.LogPath = exLog
		}
		if f.Changed("unique-threshold") {
			if exThreshold < 1 {
				return fmt.Errorf("invalid --unique-threshold: %d", exThreshold)
			}
			cfg.UniqueThreshold = exThreshold
		}
		return explore(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().StringVarP(&exInput, "input", "i", "", "CSV input path (overrides csv_path)")
	exploreCmd.Flags().StringVar(&exLog, "log", "", "exploration report path (overrides log_path)")
	exploreCmd.Flags().IntVar(&exThreshold, "unique-threshold", 0, "enumerate values of columns with fewer unique values than this")
}
