package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	testInput      string
	testResultsDir string
	testAlpha      float64
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test whether rider classes differ in points, overall and per stage class",
	Long: `Checks normality and variance homogeneity, picks ANOVA or Kruskal-Wallis for the
rider class comparison with Tukey HSD or Bonferroni corrected Mann-Whitney post-hoc tests,
then fits a two-way ANOVA for the rider class x stage class interaction.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		if f.Changed("input") {
			cfg.CSVPath = testInput
		}
		if f.Changed("results-dir") {
			cfg.ResultsDir = testResultsDir
		}
		if f.Changed("alpha") {
			if testAlpha <= 0 || testAlpha >= 1 {
				return fmt.Errorf("invalid --alpha: %v (must be in (0,1))", testAlpha)
			}
			cfg.Alpha = testAlpha
		}
		return testStage(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
	testCmd.Flags().StringVarP(&testInput, "input", "i", "", "CSV input path (overrides csv_path)")
	testCmd.Flags().StringVar(&testResultsDir, "results-dir", "", "directory for charts and reports (overrides results_dir)")
	testCmd.Flags().Float64Var(&testAlpha, "alpha", 0.05, "significance level (overrides alpha)")
}
