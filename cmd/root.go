package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/cyclestats-cli/internal/config"
	"github.com/KaramelBytes/cyclestats-cli/internal/metrics"
)

var (
	// Global flags
	cfgFile         string
	debug           bool
	quiet           bool
	flagMetricsFile string

	// Loaded configuration
	cfg *cfgpkg.Global

	// Per-invocation run metrics
	recorder *metrics.Recorder

	// logHandler receives diagnostics; tests swap in a memory handler.
	logHandler log.Handler = cli.New(os.Stderr)
)

var rootCmd = &cobra.Command{
	Use:   "cyclestats",
	Short: "cyclestats: statistics pipeline for cycling race results",
	Long: `cyclestats turns a raw text file of rider-stage results into a clean CSV, profiles it,
computes grouped descriptive statistics and tests whether rider classes score differently,
overall and per stage class. Each stage reads the previous stage's files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		recorder = metrics.New()
		return loadConfig(cmd)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := executeRoot(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

// executeRoot runs the command tree and then writes the metrics textfile,
// also when the command failed, so failure outcomes are exported.
func executeRoot() error {
	cfg, recorder = nil, nil
	err := rootCmd.Execute()
	if werr := writeMetrics(); werr != nil {
		if err == nil {
			return werr
		}
		log.WithError(werr).Warn("metrics not written")
	}
	return err
}

func writeMetrics() error {
	if cfg == nil || recorder == nil || cfg.MetricsFile == "" {
		return nil
	}
	if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
		return err
	}
	log.Debugf("metrics written to %s", cfg.MetricsFile)
	return nil
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cyclestats/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings and errors")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path (overrides config)")
}

func setupLogging() {
	log.SetHandler(logHandler)
	switch {
	case debug:
		log.SetLevel(log.DebugLevel)
	case quiet:
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func loadConfig(cmd *cobra.Command) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	// Apply CLI overrides if provided
	if cmd.Flags().Changed("metrics-file") {
		cfg.MetricsFile = flagMetricsFile
	}
	log.WithField("config", cfgFile).Debug("configuration loaded")
	return nil
}

var (
	bannerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
)

// say prints progress to w unless --quiet.
func say(w io.Writer, format string, args ...any) {
	if quiet {
		return
	}
	fmt.Fprintf(w, format, args...)
}

func banner(w io.Writer, title string) {
	if quiet {
		return
	}
	bannerColor.Fprintf(w, "==> %s\n", title)
}

func wrote(w io.Writer, what, path string) {
	if quiet {
		return
	}
	okColor.Fprintf(w, "✓ Wrote %s to %s\n", what, path)
}

// warn reports a non-fatal problem found by a stage. Warnings are shown even
// with --quiet.
func warn(stage, msg string) {
	log.WithField("stage", stage).Warn(msg)
}
