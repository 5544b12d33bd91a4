package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/apex/log"

	"github.com/KaramelBytes/cyclestats-cli/internal/analysis"
	"github.com/KaramelBytes/cyclestats-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/cyclestats-cli/internal/config"
	"github.com/KaramelBytes/cyclestats-cli/internal/dataset"
	"github.com/KaramelBytes/cyclestats-cli/internal/describe"
	"github.com/KaramelBytes/cyclestats-cli/internal/hypothesis"
	"github.com/KaramelBytes/cyclestats-cli/internal/manifest"
	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

// Stage names, also used as manifest keys and metric labels.
const (
	stagePreprocess = "preprocess"
	stageExplore    = "explore"
	stageDescribe   = "describe"
	stageTest       = "test"
)

// Report file names inside the results directory.
const (
	descriptiveReport = "descriptive_report.md"
	hypothesisReport  = "hypothesis_report.md"
)

// runStage executes fn with a fresh manifest entry, records metrics and
// saves the entry to the run manifest in the results directory.
func runStage(c *cfgpkg.Global, name string, fn func(st *manifest.Stage) error, inputs ...string) error {
	st := manifest.NewStage(name, inputs...)
	err := fn(st)
	st.Finish()
	recorder.ObserveStage(name, st.Duration, err)
	if err != nil {
		return err
	}
	recorder.AddArtifacts(name, len(st.Artifacts))
	recorder.AddWarnings(name, len(st.Warnings))

	m, err := manifest.Open(c.ResultsDir)
	if err != nil {
		return err
	}
	m.Record(st)
	if err := m.Save(); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	log.WithField("stage", name).Debugf("finished in %s", st.Duration)
	return nil
}

// stageWarn reports a warning and keeps it in the manifest entry.
func stageWarn(st *manifest.Stage, msg string) {
	warn(st.Name, msg)
	st.Warn(msg)
}

func chartStyle(c *cfgpkg.Global) (chart.Style, error) {
	s, err := chart.NewStyle(c.ChartWidthIn, c.ChartHeightIn, c.ChartDPI, c.Palette)
	if err != nil {
		return s, fmt.Errorf("chart style: %w", err)
	}
	return s, nil
}

func preprocess(c *cfgpkg.Global, out io.Writer) error {
	return runStage(c, stagePreprocess, func(st *manifest.Stage) error {
		banner(out, "Preprocessing "+c.RawInput)
		tab, err := dataset.ReadRaw(c.RawInput)
		if err != nil {
			return err
		}
		for _, m := range tab.Malformed {
			stageWarn(st, "malformed row excluded: "+m.Error())
		}
		for _, f := range tab.Flagged {
			stageWarn(st, "non-numeric points kept as NaN: "+f.String())
		}
		for _, w := range tab.Warnings {
			stageWarn(st, w)
		}
		recorder.SetRows("valid", len(tab.Records)-len(tab.Flagged))
		recorder.SetRows("flagged", len(tab.Flagged))
		recorder.SetRows("malformed", len(tab.Malformed))

		if err := dataset.WriteCSV(c.CSVPath, tab.Records); err != nil {
			return err
		}
		if err := st.Add(c.CSVPath); err != nil {
			return err
		}
		say(out, "%s\n", dataset.Summarize(tab).Text())
		wrote(out, fmt.Sprintf("%d records", len(tab.Records)), c.CSVPath)
		return nil
	}, c.RawInput)
}

func explore(c *cfgpkg.Global, out io.Writer) error {
	return runStage(c, stageExplore, func(st *manifest.Stage) error {
		banner(out, "Exploring "+c.CSVPath)
		opt := analysis.DefaultOptions()
		opt.UniqueThreshold = c.UniqueThreshold
		rep, err := analysis.Profile(c.CSVPath, opt)
		if err != nil {
			return err
		}
		for _, w := range rep.Warnings {
			stageWarn(st, w)
		}
		text := rep.Text()
		if err := utils.SafeWriteFile(c.LogPath, []byte(text)); err != nil {
			return fmt.Errorf("write exploration log: %w", err)
		}
		if err := st.Add(c.LogPath); err != nil {
			return err
		}
		say(out, "%s\n", text)
		wrote(out, "exploration report", c.LogPath)
		return nil
	}, c.CSVPath)
}

func describeStage(c *cfgpkg.Global, out io.Writer) error {
	return runStage(c, stageDescribe, func(st *manifest.Stage) error {
		banner(out, "Describing "+c.CSVPath)
		recs, err := dataset.ReadCSV(c.CSVPath)
		if err != nil {
			return err
		}
		style, err := chartStyle(c)
		if err != nil {
			return err
		}
		a := describe.Analyze(recs)
		charts, skipped, err := describe.RenderCharts(a, recs, style, c.ResultsDir)
		if err != nil {
			return err
		}
		for _, e := range skipped {
			stageWarn(st, "chart skipped: "+e.Error())
		}
		for _, p := range charts {
			if err := st.Add(p); err != nil {
				return err
			}
		}
		md, err := a.Markdown(charts)
		if err != nil {
			return err
		}
		path := filepath.Join(c.ResultsDir, descriptiveReport)
		if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
			return fmt.Errorf("write descriptive report: %w", err)
		}
		if err := st.Add(path); err != nil {
			return err
		}
		say(out, "%s\n", a.Text())
		wrote(out, fmt.Sprintf("%d charts", len(charts)), c.ResultsDir)
		wrote(out, "descriptive report", path)
		return nil
	}, c.CSVPath)
}

func testStage(c *cfgpkg.Global, out io.Writer) error {
	return runStage(c, stageTest, func(st *manifest.Stage) error {
		banner(out, "Testing hypotheses on "+c.CSVPath)
		recs, err := dataset.ReadCSV(c.CSVPath)
		if err != nil {
			return err
		}
		style, err := chartStyle(c)
		if err != nil {
			return err
		}
		rep := hypothesis.Run(recs, hypothesis.Options{Alpha: c.Alpha, LargeSample: c.LargeSampleThreshold})
		for _, w := range rep.Warnings() {
			stageWarn(st, w)
		}
		charts, skipped, err := hypothesis.RenderCharts(rep, recs, style, c.ResultsDir)
		if err != nil {
			return err
		}
		for _, e := range skipped {
			stageWarn(st, "chart skipped: "+e.Error())
		}
		for _, p := range charts {
			if err := st.Add(p); err != nil {
				return err
			}
		}
		md, err := rep.Markdown(charts)
		if err != nil {
			return err
		}
		path := filepath.Join(c.ResultsDir, hypothesisReport)
		if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
			return fmt.Errorf("write hypothesis report: %w", err)
		}
		if err := st.Add(path); err != nil {
			return err
		}
		say(out, "%s\n", rep.Text())
		wrote(out, fmt.Sprintf("%d charts", len(charts)), c.ResultsDir)
		wrote(out, "hypothesis report", path)
		return nil
	}, c.CSVPath)
}
