package cmd

import (
	"github.com/spf13/cobra"
)

var (
	ppInput  string
	ppOutput string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Parse the raw results file into a clean CSV",
	Long: `Reads quoted, space separated rider-stage records, reports malformed rows and
non-numeric points, prints a data overview and writes the cleaned table as CSV.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("input") {
			cfg.RawInput = ppInput
		}
		if cmd.Flags().Changed("output") {
			cfg.CSVPath = ppOutput
		}
		return preprocess(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(preprocessCmd)
	preprocessCmd.Flags().StringVarP(&ppInput, "input", "i", "", "raw input file (overrides raw_input)")
	preprocessCmd.Flags().StringVarP(&ppOutput, "output", "o", "", "CSV output path (overrides csv_path)")
}
