package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/cyclestats-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set cyclestats configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(w, "No config loaded")
			return nil
		}
		fmt.Fprintf(w, "raw_input: %s\n", cfg.RawInput)
		fmt.Fprintf(w, "csv_path: %s\n", cfg.CSVPath)
		fmt.Fprintf(w, "log_path: %s\n", cfg.LogPath)
		fmt.Fprintf(w, "results_dir: %s\n", cfg.ResultsDir)
		fmt.Fprintf(w, "alpha: %g\n", cfg.Alpha)
		fmt.Fprintf(w, "unique_threshold: %d\n", cfg.UniqueThreshold)
		fmt.Fprintf(w, "large_sample_threshold: %d\n", cfg.LargeSampleThreshold)
		fmt.Fprintf(w, "chart_width_in: %g\n", cfg.ChartWidthIn)
		fmt.Fprintf(w, "chart_height_in: %g\n", cfg.ChartHeightIn)
		fmt.Fprintf(w, "chart_dpi: %d\n", cfg.ChartDPI)
		fmt.Fprintf(w, "palette: %s\n", strings.Join(cfg.Palette, ","))
		if cfg.MetricsFile != "" {
			fmt.Fprintf(w, "metrics_file: %s\n", cfg.MetricsFile)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "raw_input":
			cfg.RawInput = val
		case "csv_path":
			cfg.CSVPath = val
		case "log_path":
			cfg.LogPath = val
		case "results_dir":
			cfg.ResultsDir = val
		case "metrics_file":
			cfg.MetricsFile = val
		case "alpha":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for alpha: %w", err)
			}
			cfg.Alpha = f
		case "unique_threshold":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for unique_threshold: %w", err)
			}
			cfg.UniqueThreshold = i
		case "large_sample_threshold":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for large_sample_threshold: %w", err)
			}
			cfg.LargeSampleThreshold = i
		case "chart_width_in", "chart_height_in":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %w", key, err)
			}
			if key == "chart_width_in" {
				cfg.ChartWidthIn = f
			} else {
				cfg.ChartHeightIn = f
			}
		case "chart_dpi":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for chart_dpi: %w", err)
			}
			cfg.ChartDPI = i
		case "palette":
			var hexes []string
			for _, h := range strings.Split(val, ",") {
				if h = strings.TrimSpace(h); h != "" {
					hexes = append(hexes, h)
				}
			}
			cfg.Palette = hexes
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
