package chart

import (
	"fmt"
	"image/color"
	"math"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Box draws one box plot per labelled sample. Empty samples leave an empty slot.
func Box(s Style, title, xlabel, ylabel string, labels []string, samples [][]float64) (*plot.Plot, error) {
	if len(labels) == 0 || len(labels) != len(samples) {
		return nil, fmt.Errorf("box plot %q: %w", title, ErrNoData)
	}
	p := newPlot(title, xlabel, ylabel)
	w := s.barWidthPoints(len(labels), 0.5)
	drawn := 0
	for i, xs := range samples {
		vals := numeric.Finite(xs)
		if len(vals) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(w, float64(i), plotter.Values(vals))
		if err != nil {
			return nil, fmt.Errorf("box %s: %w", labels[i], err)
		}
		b.FillColor = s.Color(i)
		p.Add(b)
		drawn++
	}
	if drawn == 0 {
		return nil, fmt.Errorf("box plot %q: %w", title, ErrNoData)
	}
	p.NominalX(labels...)
	return p, nil
}

const violinPoints = 100

// Violin draws the Gaussian kernel density of each sample mirrored around its
// slot, with a line from the first to the third quartile and a median marker.
func Violin(s Style, title, xlabel, ylabel string, labels []string, samples [][]float64) (*plot.Plot, error) {
	if len(labels) == 0 || len(labels) != len(samples) {
		return nil, fmt.Errorf("violin plot %q: %w", title, ErrNoData)
	}
	p := newPlot(title, xlabel, ylabel)
	drawn := 0
	for i, xs := range samples {
		shape, err := violinShape(numeric.Finite(xs), float64(i), 0.4)
		if err != nil {
			continue
		}
		poly, err := plotter.NewPolygon(shape)
		if err != nil {
			return nil, fmt.Errorf("violin %s: %w", labels[i], err)
		}
		poly.Color = s.Color(i)
		poly.LineStyle.Color = color.Black
		poly.LineStyle.Width = vg.Points(0.5)
		p.Add(poly)

		sorted := numeric.Sorted(numeric.Finite(xs))
		iqr, err := plotter.NewLine(plotter.XYs{
			{X: float64(i), Y: numeric.Quantile(sorted, 0.25)},
			{X: float64(i), Y: numeric.Quantile(sorted, 0.75)},
		})
		if err != nil {
			return nil, err
		}
		iqr.Width = vg.Points(4)
		iqr.Color = color.Gray{Y: 40}
		p.Add(iqr)

		med, err := plotter.NewScatter(plotter.XYs{{X: float64(i), Y: numeric.Quantile(sorted, 0.5)}})
		if err != nil {
			return nil, err
		}
		med.GlyphStyle.Color = color.White
		med.GlyphStyle.Radius = vg.Points(2.5)
		p.Add(med)
		drawn++
	}
	if drawn == 0 {
		return nil, fmt.Errorf("violin plot %q: %w", title, ErrNoData)
	}
	p.NominalX(labels...)
	return p, nil
}

// violinShape returns the outline of a density mirrored around x, scaled so
// the widest point spans halfWidth on each side.
func violinShape(vals []float64, x, halfWidth float64) (plotter.XYs, error) {
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	sample := stats.Sample{Xs: numeric.Sorted(vals), Sorted: true}
	kde := &stats.KDE{Sample: sample}
	sd := sample.StdDev()
	if len(vals) < 2 || sd == 0 || math.IsNaN(sd) {
		kde.Bandwidth = 1
	}
	bw := kde.Bandwidth
	if bw == 0 {
		bw = 1.06 * sd * math.Pow(float64(len(vals)), -0.2)
	}
	lo := sample.Xs[0] - 2*bw
	hi := sample.Xs[len(sample.Xs)-1] + 2*bw

	ys := make([]float64, violinPoints)
	dens := make([]float64, violinPoints)
	peak := 0.0
	for k := range ys {
		ys[k] = lo + (hi-lo)*float64(k)/float64(violinPoints-1)
		dens[k] = kde.PDF(ys[k])
		peak = math.Max(peak, dens[k])
	}
	if peak == 0 || math.IsNaN(peak) {
		return nil, ErrNoData
	}
	shape := make(plotter.XYs, 0, 2*violinPoints)
	for k := range ys {
		shape = append(shape, plotter.XY{X: x + halfWidth*dens[k]/peak, Y: ys[k]})
	}
	for k := len(ys) - 1; k >= 0; k-- {
		shape = append(shape, plotter.XY{X: x - halfWidth*dens[k]/peak, Y: ys[k]})
	}
	return shape, nil
}
