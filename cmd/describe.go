package cmd

import (
	"github.com/spf13/cobra"
)

var (
	descInput      string
	descResultsDir string
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Compute grouped descriptive statistics and render charts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("input") {
			cfg.CSVPath = descInput
		}
		if cmd.Flags().Changed("results-dir") {
			cfg.ResultsDir = descResultsDir
		}
		return describeStage(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descInput, "input", "i", "", "CSV input path (overrides csv_path)")
	describeCmd.Flags().StringVar(&descResultsDir, "results-dir", "", "directory for charts and reports (overrides results_dir)")
}
