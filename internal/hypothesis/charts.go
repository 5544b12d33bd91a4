package hypothesis

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"

	"github.com/KaramelBytes/cyclestats-cli/internal/chart"
	"github.com/KaramelBytes/cyclestats-cli/internal/dataset"
	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Chart file names written by RenderCharts.
const (
	ChartBoxRider     = "hypothesis_boxplot_rider_class.png"
	ChartInteraction  = "hypothesis_interaction_plot.png"
	ChartPostHoc      = "hypothesis_posthoc_pvalues.png"
	ChartStagePValues = "hypothesis_stage_class_pvalues.png"
)

// RenderCharts writes the hypothesis charts for rep into dir. The post-hoc
// and stage class charts are only drawn when those tests ran. Charts that
// cannot be drawn are returned in skipped.
func RenderCharts(rep *Report, recs []dataset.Record, style chart.Style, dir string) (written []string, skipped []error, err error) {
	valid := dataset.Filter(recs, dataset.Record.HasPoints)
	type job struct {
		name   string
		render func() (*plot.Plot, error)
	}
	jobs := []job{
		{ChartBoxRider, func() (*plot.Plot, error) {
			var labels []string
			var vals [][]float64
			for _, s := range samples(valid, dataset.ByRiderClass) {
				labels = append(labels, s.Name)
				vals = append(vals, s.Values)
			}
			return chart.Box(style, "Points Distribution by Rider Class", "Rider Class", "Points", labels, vals)
		}},
		{ChartInteraction, func() (*plot.Plot, error) {
			riders, stages, means := cellMeans(valid)
			return chart.Lines(style, "Interaction Plot: Rider Class x Stage Class", "Stage Class", "Mean Points",
				stages, riders, means)
		}},
	}
	if g := rep.RiderClass; g != nil && len(g.PostHoc) > 0 {
		jobs = append(jobs, job{ChartPostHoc, func() (*plot.Plot, error) {
			labels := make([]string, len(g.PostHoc))
			ps := make([]float64, len(g.PostHoc))
			for i, c := range g.PostHoc {
				labels[i] = c.A + " vs " + c.B
				ps[i] = c.P
			}
			return chart.PValueBars(style, "Post-hoc Pairwise Comparisons: "+g.PostHocTest, labels, ps, g.PostHocAlpha)
		}})
	}
	if in := rep.Interaction; in != nil && len(in.Stages) > 0 {
		jobs = append(jobs, job{ChartStagePValues, func() (*plot.Plot, error) {
			var labels []string
			var ps []float64
			for _, st := range in.Stages {
				if st.Main == nil {
					continue
				}
				labels = append(labels, st.Label)
				ps = append(ps, st.Main.P)
			}
			return chart.PValueBars(style, "Rider Class Differences within Stage Class", labels, ps, rep.Alpha)
		}})
	}

	for _, j := range jobs {
		p, rerr := j.render()
		if rerr != nil {
			skipped = append(skipped, fmt.Errorf("%s: %w", j.name, rerr))
			continue
		}
		path := filepath.Join(dir, j.name)
		if err := style.Save(p, path); err != nil {
			return written, skipped, err
		}
		written = append(written, path)
	}
	return written, skipped, nil
}

// cellMeans returns the mean points indexed [rider][stage], NaN for empty
// cells.
func cellMeans(recs []dataset.Record) (riders, stages []string, means [][]float64) {
	for _, g := range dataset.GroupBy(recs, dataset.ByRiderClass) {
		riders = append(riders, g.Key)
	}
	for _, g := range dataset.GroupBy(recs, dataset.ByStageClass) {
		stages = append(stages, g.Key)
	}
	col := make(map[string]int, len(stages))
	for j, s := range stages {
		col[s] = j
	}
	means = make([][]float64, len(riders))
	for i, rg := range dataset.GroupBy(recs, dataset.ByRiderClass) {
		means[i] = make([]float64, len(stages))
		for j := range means[i] {
			means[i][j] = math.NaN()
		}
		for _, sg := range dataset.GroupBy(rg.Records, dataset.ByStageClass) {
			if vals := numeric.Finite(sg.Points()); len(vals) > 0 {
				means[i][col[sg.Key]] = stat.Mean(vals, nil)
			}
		}
	}
	return riders, stages, means
}
