package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

const barWidth = 0.7

// barWidthPoints converts a width in category units to points for the
// canvas width and number of categories.
func (s Style) barWidthPoints(categories int, fraction float64) vg.Length {
	if categories < 1 {
		categories = 1
	}
	return vg.Length(float64(s.Width) * 0.75 / float64(categories) * fraction)
}

// Bar draws one coloured bar per label with the value printed above it.
func Bar(s Style, title, xlabel, ylabel string, labels []string, values []float64) (*plot.Plot, error) {
	if len(labels) == 0 || len(labels) != len(values) {
		return nil, fmt.Errorf("bar chart %q: %w", title, ErrNoData)
	}
	p := newPlot(title, xlabel, ylabel)
	w := s.barWidthPoints(len(labels), barWidth)
	var xys plotter.XYs
	var texts []string
	for i, v := range values {
		v = finiteOrZero(v)
		bc, err := plotter.NewBarChart(plotter.Values{v}, w)
		if err != nil {
			return nil, fmt.Errorf("bar %s: %w", labels[i], err)
		}
		bc.XMin = float64(i)
		bc.Color = s.Color(i)
		bc.LineStyle.Width = 0
		p.Add(bc)
		xys = append(xys, plotter.XY{X: float64(i), Y: v})
		texts = append(texts, fmt.Sprintf("%.2f", v))
	}
	if err := addLabels(p, xys, texts); err != nil {
		return nil, err
	}
	p.NominalX(labels...)
	p.Y.Min = math.Min(0, p.Y.Min)
	p.Y.Max *= 1.08
	return p, nil
}

// GroupedBar draws, for each group, one bar per series side by side.
// values is indexed [group][series]; NaN values are drawn as empty slots.
func GroupedBar(s Style, title, xlabel, ylabel string, groups, series []string, values [][]float64) (*plot.Plot, error) {
	if len(groups) == 0 || len(series) == 0 || len(values) != len(groups) {
		return nil, fmt.Errorf("grouped bar chart %q: %w", title, ErrNoData)
	}
	p := newPlot(title, xlabel, ylabel)
	w := s.barWidthPoints(len(groups), 0.8/float64(len(series)))
	for j, name := range series {
		vals := make(plotter.Values, len(groups))
		for i := range groups {
			if j < len(values[i]) {
				vals[i] = finiteOrZero(values[i][j])
			}
		}
		bc, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", name, err)
		}
		bc.Color = s.Color(j)
		bc.LineStyle.Width = 0
		bc.Offset = vg.Length(float64(j)-float64(len(series)-1)/2) * w
		p.Add(bc)
		p.Legend.Add(name, bc)
	}
	p.Legend.Top = true
	p.NominalX(groups...)
	p.Y.Min = math.Min(0, p.Y.Min)
	return p, nil
}

// PValueBars plots -log10(p) per comparison with a dashed line at
// -log10(alpha). Bars above the line are drawn in the first palette colour.
func PValueBars(s Style, title string, labels []string, pvalues []float64, alpha float64) (*plot.Plot, error) {
	if len(labels) == 0 || len(labels) != len(pvalues) {
		return nil, fmt.Errorf("p-value chart %q: %w", title, ErrNoData)
	}
	p := newPlot(title, "", "-log10(p-value)")
	w := s.barWidthPoints(len(labels), barWidth)
	threshold := -math.Log10(alpha)
	muted := color.RGBA{R: 160, G: 160, B: 160, A: 255}
	for i, pv := range pvalues {
		h := 0.0
		if !math.IsNaN(pv) {
			h = -math.Log10(math.Max(pv, 1e-16))
		}
		bc, err := plotter.NewBarChart(plotter.Values{h}, w)
		if err != nil {
			return nil, err
		}
		bc.XMin = float64(i)
		bc.LineStyle.Width = 0
		bc.Color = muted
		if h > threshold {
			bc.Color = s.Color(0)
		}
		p.Add(bc)
	}
	line, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: threshold},
		{X: float64(len(labels)) - 0.5, Y: threshold},
	})
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 200, A: 255}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("alpha = %g", alpha), line)
	p.Legend.Top = true

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.Y.Min = 0
	p.Y.Max = math.Max(p.Y.Max, threshold*1.2)
	return p, nil
}

func addLabels(p *plot.Plot, xys plotter.XYs, texts []string) error {
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = text.XCenter
		l.TextStyle[i].YAlign = text.YBottom
	}
	p.Add(l)
	return nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
