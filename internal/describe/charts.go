package describe

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"

	"github.com/KaramelBytes/cyclestats-cli/internal/chart"
	"github.com/KaramelBytes/cyclestats-cli/internal/dataset"
)

// Chart file names written by RenderCharts.
const (
	ChartMeanRider   = "descriptive_barplot_mean_rider_class.png"
	ChartMeanStage   = "descriptive_barplot_mean_stage_class.png"
	ChartInteraction = "descriptive_barplot_interaction.png"
	ChartHeatmap     = "descriptive_heatmap_interaction.png"
	ChartBoxRider    = "descriptive_boxplot_rider_class.png"
	ChartBoxStage    = "descriptive_boxplot_stage_class.png"
	ChartViolinRider = "descriptive_violin_rider_class.png"
	ChartViolinStage = "descriptive_violin_stage_class.png"
)

type renderFunc func() (*plot.Plot, error)

// RenderCharts writes the descriptive charts into dir and returns the paths
// written. A chart that cannot be drawn is skipped and reported in skipped.
func RenderCharts(a *Analysis, recs []dataset.Record, style chart.Style, dir string) (written []string, skipped []error, err error) {
	riders := a.RiderClasses()
	stages := a.StageClasses()
	byRider := groupPoints(recs, dataset.ByRiderClass, riders)
	byStage := groupPoints(recs, dataset.ByStageClass, stages)

	jobs := []struct {
		name   string
		render renderFunc
	}{
		{ChartMeanRider, func() (*plot.Plot, error) {
			labels, means := sortedMeans(a.ByRider)
			return chart.Bar(style, "Mean Points by Rider Class", "Rider Class", "Mean Points", labels, means)
		}},
		{ChartMeanStage, func() (*plot.Plot, error) {
			labels, means := sortedMeans(a.ByStage)
			return chart.Bar(style, "Mean Points by Stage Class", "Stage Class", "Mean Points", labels, means)
		}},
		{ChartInteraction, func() (*plot.Plot, error) {
			return chart.GroupedBar(style, "Mean Points by Rider Class and Stage Class", "Rider Class", "Mean Points",
				riders, stages, a.crossMatrix(riders, stages))
		}},
		{ChartHeatmap, func() (*plot.Plot, error) {
			return chart.Heatmap(style, "Mean Points Heatmap: Rider Class x Stage Class", "Stage Class", "Rider Class",
				riders, stages, a.crossMatrix(riders, stages))
		}},
		{ChartBoxRider, func() (*plot.Plot, error) {
			return chart.Box(style, "Points by Rider Class", "Rider Class", "Points", riders, byRider)
		}},
		{ChartBoxStage, func() (*plot.Plot, error) {
			return chart.Box(style, "Points by Stage Class", "Stage Class", "Points", stages, byStage)
		}},
		{ChartViolinRider, func() (*plot.Plot, error) {
			return chart.Violin(style, "Points Distribution by Rider Class", "Rider Class", "Points", riders, byRider)
		}},
		{ChartViolinStage, func() (*plot.Plot, error) {
			return chart.Violin(style, "Points Distribution by Stage Class", "Stage Class", "Points", stages, byStage)
		}},
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

// sortedMeans returns group keys and means ordered by descending mean.
func sortedMeans(groups []Group) ([]string, []float64) {
	gs := make([]Group, 0, len(groups))
	for _, g := range groups {
		if g.Count > 0 {
			gs = append(gs, g)
		}
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Mean > gs[j].Mean })
	labels := make([]string, len(gs))
	means := make([]float64, len(gs))
	for i, g := range gs {
		labels[i], means[i] = g.Key, g.Mean
	}
	return labels, means
}

// crossMatrix returns mean points indexed [rider][stage], NaN for empty cells.
func (a *Analysis) crossMatrix(riders, stages []string) [][]float64 {
	out := make([][]float64, len(riders))
	for i, r := range riders {
		out[i] = make([]float64, len(stages))
		for j, s := range stages {
			m, ok := a.CrossMean(r, s)
			if !ok {
				m = math.NaN()
			}
			out[i][j] = m
		}
	}
	return out
}

func groupPoints(recs []dataset.Record, key func(dataset.Record) string, order []string) [][]float64 {
	byKey := map[string][]float64{}
	for _, g := range dataset.GroupBy(recs, key) {
		byKey[g.Key] = g.Points()
	}
	out := make([][]float64, len(order))
	for i, k := range order {
		out[i] = byKey[k]
	}
	return out
}
