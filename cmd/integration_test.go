package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cyclestats-cli/internal/describe"
	"github.com/KaramelBytes/cyclestats-cli/internal/hypothesis"
	"github.com/KaramelBytes/cyclestats-cli/internal/manifest"
)

var resettable = []string{
	"config", "debug", "quiet", "metrics-file",
	"input", "output", "log", "unique-threshold", "results-dir", "alpha", "dot",
}

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	for _, name := range resettable {
		if fl := c.Flags().Lookup(name); fl != nil {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		}
		if fl := c.PersistentFlags().Lookup(name); fl != nil {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		}
	}
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := executeRoot()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// captureLogs routes diagnostics to memory for the duration of the test.
func captureLogs(t *testing.T) *memory.Handler {
	t.Helper()
	h := memory.New()
	old := logHandler
	logHandler = h
	t.Cleanup(func() { logHandler = old })
	return h
}

type workspace struct {
	dir, raw, csv, log, results, config string
}

// newWorkspace writes a raw results file where sprinters score on flat
// stages and climbers on mountain stages, plus one malformed and one
// non-numeric row, and a config pointing every path into a temp dir.
func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		raw:     filepath.Join(dir, "input_data", "cycling.txt"),
		csv:     filepath.Join(dir, "input_data", "cycling.csv"),
		log:     filepath.Join(dir, "logging.txt"),
		results: filepath.Join(dir, "results"),
		config:  filepath.Join(dir, "config.yaml"),
	}

	var b strings.Builder
	b.WriteString(`"all_riders" "rider_class" "stage" "points" "stage_class"` + "\n")
	base := map[string]float64{"All Rounder": 20, "Climber": 10, "Sprinter": 10, "Unclassed": 2}
	noise := []float64{-2, -1, 0, 0, 1, 2}
	for ci, rc := range []string{"All Rounder", "Climber", "Sprinter", "Unclassed"} {
		for si, sc := range []string{"flat", "hills", "mount"} {
			for i, e := range noise {
				mean := base[rc]
				if rc == "Sprinter" && sc == "flat" || rc == "Climber" && sc == "mount" {
					mean += 40
				}
				fmt.Fprintf(&b, "%q %q %q %q %q\n",
					fmt.Sprintf("Rider %d-%d", ci, i), rc, fmt.Sprintf("S%d", si),
					strconv.FormatFloat(mean+e, 'f', -1, 64), sc)
			}
		}
	}
	b.WriteString(`"Broken Row" "Sprinter" "S9" "flat"` + "\n")
	b.WriteString(`"Odd Rider" "Climber" "S9" "dnf" "hills"` + "\n")
	if err := os.MkdirAll(filepath.Dir(ws.raw), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.raw, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	conf := fmt.Sprintf(`raw_input: %q
csv_path: %q
log_path: %q
results_dir: %q
chart_width_in: 4
chart_height_in: 3
chart_dpi: 40
`, ws.raw, ws.csv, ws.log, ws.results)
	if err := os.WriteFile(ws.config, []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}
	return ws
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Fatalf("%s is empty", path)
	}
}

func TestCLI_RunWritesEveryArtifact(t *testing.T) {
	ws := newWorkspace(t)
	logs := captureLogs(t)
	dot := filepath.Join(ws.dir, "pipeline.dot")
	metricsFile := filepath.Join(ws.dir, "metrics", "cyclestats.prom")

	out := runCmd(t, "--config", ws.config, "--metrics-file", metricsFile, "run", "--dot", dot)

	mustExist(t, ws.csv)
	mustExist(t, ws.log)
	for _, name := range []string{
		describe.ChartMeanRider, describe.ChartMeanStage, describe.ChartInteraction, describe.ChartHeatmap,
		describe.ChartBoxRider, describe.ChartBoxStage, describe.ChartViolinRider, describe.ChartViolinStage,
		hypothesis.ChartBoxRider, hypothesis.ChartInteraction, hypothesis.ChartPostHoc, hypothesis.ChartStagePValues,
		descriptiveReport, hypothesisReport,
	} {
		mustExist(t, filepath.Join(ws.results, name))
	}

	b, err := os.ReadFile(dot)
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if !strings.Contains(string(b), `"preprocess" -> "test"`) {
		t.Fatalf("dot missing edge:\n%s", b)
	}

	m, err := manifest.Load(ws.results)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if !strings.Contains(out, "✓ Pipeline complete (run "+m.RunID+")") {
		t.Fatalf("run summary does not name run %s:\n%s", m.RunID, out)
	}
	if len(m.Stages) != 4 {
		t.Fatalf("manifest stages = %d, want 4", len(m.Stages))
	}
	if n := len(m.Stages[stageDescribe].Artifacts); n != 9 {
		t.Fatalf("describe artifacts = %d, want 9", n)
	}
	if n := len(m.Stages[stagePreprocess].Warnings); n != 2 {
		t.Fatalf("preprocess warnings = %v", m.Stages[stagePreprocess].Warnings)
	}

	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{
		`cyclestats_stage_runs_total{outcome="success",stage="test"} 1`,
		`cyclestats_rows{kind="malformed"} 1`,
		`cyclestats_rows{kind="flagged"} 1`,
	} {
		if !strings.Contains(string(prom), want) {
			t.Fatalf("metrics missing %q:\n%s", want, prom)
		}
	}

	var sawMalformed bool
	for _, e := range logs.Entries {
		if e.Level == log.WarnLevel && strings.Contains(e.Message, "malformed row excluded") {
			sawMalformed = true
		}
	}
	if !sawMalformed {
		t.Fatalf("expected a malformed row warning in the log")
	}
}

func TestCLI_StagesOneByOne(t *testing.T) {
	ws := newWorkspace(t)
	captureLogs(t)

	out := runCmd(t, "--config", ws.config, "preprocess")
	if !strings.Contains(out, "Shape: (73, 5)") || !strings.Contains(out, "✓ Wrote 73 records") {
		t.Fatalf("preprocess output:\n%s", out)
	}

	altLog := filepath.Join(ws.dir, "explore.txt")
	out = runCmd(t, "--config", ws.config, "explore", "--log", altLog)
	if !strings.Contains(out, "CYCLING DATA EXPLORATION") {
		t.Fatalf("explore output:\n%s", out)
	}
	mustExist(t, altLog)
	if _, err := os.Stat(ws.log); err == nil {
		t.Fatalf("--log should override log_path")
	}
	txt, err := os.ReadFile(altLog)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(txt), "'Unclassed'") {
		t.Fatalf("rider classes should be enumerated:\n%s", txt)
	}

	altResults := filepath.Join(ws.dir, "alt")
	runCmd(t, "--config", ws.config, "--quiet", "describe", "--results-dir", altResults)
	mustExist(t, filepath.Join(altResults, describe.ChartHeatmap))

	out = runCmd(t, "--config", ws.config, "test", "--alpha", "0.01")
	if !strings.Contains(out, "Kruskal-Wallis") {
		t.Fatalf("test output:\n%s", out)
	}
	md, err := os.ReadFile(filepath.Join(ws.results, hypothesisReport))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "# Hypothesis Testing for Cycling Data") {
		t.Fatalf("hypothesis report:\n%s", md)
	}

	// the stage commands share one run manifest
	m, err := manifest.Load(ws.results)
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range []string{stagePreprocess, stageExplore, stageTest} {
		if _, ok := m.Stages[st]; !ok {
			t.Fatalf("manifest missing %s: %v", st, m.Stages)
		}
	}
}

func TestCLI_MissingInputFails(t *testing.T) {
	ws := newWorkspace(t)
	captureLogs(t)
	if err := os.Remove(ws.raw); err != nil {
		t.Fatal(err)
	}
	prom := filepath.Join(ws.dir, "failed.prom")
	_, err := execute(t, "--config", ws.config, "--quiet", "--metrics-file", prom, "run")
	if err == nil || !strings.Contains(err.Error(), "stage preprocess") {
		t.Fatalf("expected preprocess failure, got %v", err)
	}
	b, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("metrics not written for a failed run: %v", err)
	}
	if !strings.Contains(string(b), `cyclestats_stage_runs_total{outcome="failure",stage="preprocess"} 1`) {
		t.Fatalf("failure outcome missing from metrics:\n%s", b)
	}

	_, err = execute(t, "--config", ws.config, "describe")
	if err == nil || !strings.Contains(err.Error(), "input file not found") {
		t.Fatalf("expected missing csv error, got %v", err)
	}
}

func TestCLI_RejectsBadAlpha(t *testing.T) {
	ws := newWorkspace(t)
	captureLogs(t)
	runCmd(t, "--config", ws.config, "--quiet", "preprocess")
	if _, err := execute(t, "--config", ws.config, "test", "--alpha", "1.5"); err == nil {
		t.Fatalf("expected alpha validation error")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	ws := newWorkspace(t)
	captureLogs(t)

	runCmd(t, "--config", ws.config, "config", "set", "alpha", "0.01")
	runCmd(t, "--config", ws.config, "config", "set", "palette", "#000000, #ffffff")
	out := runCmd(t, "--config", ws.config, "config", "show")
	for _, want := range []string{"alpha: 0.01", "palette: #000000,#ffffff", "chart_dpi: 40", "results_dir: " + ws.results} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "--config", ws.config, "config", "set", "alpha", "2"); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := execute(t, "--config", ws.config, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
