package cmd

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/cyclestats-cli/internal/config"
	"github.com/KaramelBytes/cyclestats-cli/internal/manifest"
	"github.com/KaramelBytes/cyclestats-cli/internal/pipeline"
	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

var runDot string

var pipelineCmd = &cobra.Command{
	Use:   "run",
	Short: "Run preprocess, explore, describe and test in dependency order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		p, err := buildPipeline(cfg, out)
		if err != nil {
			return err
		}
		if runDot != "" {
			var buf bytes.Buffer
			if err := p.WriteDOT(&buf); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(runDot, buf.Bytes()); err != nil {
				return fmt.Errorf("write dot: %w", err)
			}
			wrote(out, "stage graph", runDot)
		}

		// a new run gets a new run ID
		m := manifest.New(cfg.ResultsDir)
		if err := m.Save(); err != nil {
			return fmt.Errorf("start manifest: %w", err)
		}

		var bar *progressbar.ProgressBar
		if !quiet {
			bar = newStageBar(p.Len(), cmd.ErrOrStderr())
		}
		err = p.Run(func(stage string, elapsed time.Duration, err error) {
			log.WithField("stage", stage).Debugf("took %s", elapsed)
			if bar != nil {
				bar.Describe(stage)
				_ = bar.Add(1)
			}
		})
		if err != nil {
			return err
		}
		say(out, "✓ Pipeline complete (run %s); results in %s\n", m.RunID, m.Dir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().StringVar(&runDot, "dot", "", "write the stage graph in Graphviz DOT form to this file")
}

// buildPipeline wires the four stages; every analysis stage reads the CSV
// written by preprocess.
func buildPipeline(c *cfgpkg.Global, out io.Writer) (*pipeline.Pipeline, error) {
	return pipeline.New(
		&pipeline.Stage{Name: stagePreprocess, Run: func() error { return preprocess(c, out) }},
		&pipeline.Stage{Name: stageExplore, Needs: []string{stagePreprocess}, Run: func() error { return explore(c, out) }},
		&pipeline.Stage{Name: stageDescribe, Needs: []string{stagePreprocess}, Run: func() error { return describeStage(c, out) }},
		&pipeline.Stage{Name: stageTest, Needs: []string{stagePreprocess}, Run: func() error { return testStage(c, out) }},
	)
}

func newStageBar(n int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("stages"),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
}
