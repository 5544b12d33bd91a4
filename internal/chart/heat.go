package chart

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// yellowOrangeRed is the sequential palette of the heatmap, light to dark.
var yellowOrangeRed = []string{
	"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c",
	"#fc4e2a", "#e31a1c", "#bd0026", "#800026",
}

// gradient implements palette.Palette by interpolating between stops.
type gradient []color.Color

func (g gradient) Colors() []color.Color { return g }

func newGradient(stops []string, n int) (gradient, error) {
	cs, err := ParsePalette(stops)
	if err != nil {
		return nil, err
	}
	out := make(gradient, n)
	for i := range out {
		t := float64(i) / float64(n-1) * float64(len(cs)-1)
		lo := int(math.Floor(t))
		hi := min(lo+1, len(cs)-1)
		out[i] = lerp(cs[lo], cs[hi], t-float64(lo))
	}
	return out, nil
}

func lerp(a, b color.Color, t float64) color.Color {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	mix := func(x, y uint32) uint8 {
		return uint8((float64(x)*(1-t) + float64(y)*t) / 257)
	}
	return color.RGBA{R: mix(ar, br), G: mix(ag, bg), B: mix(ab, bb), A: 255}
}

// grid adapts a row-major matrix to plotter.GridXYZ with unit cells.
type grid [][]float64

func (g grid) Dims() (c, r int)   { return len(g[0]), len(g) }
func (g grid) Z(c, r int) float64 { return g[r][c] }
func (g grid) X(c int) float64    { return float64(c) }
func (g grid) Y(r int) float64    { return float64(r) }

// Heatmap draws values[row][col] as coloured cells annotated with their value.
// NaN cells are left white and unlabelled.
func Heatmap(s Style, title, xlabel, ylabel string, rows, cols []string, values [][]float64) (*plot.Plot, error) {
	if len(rows) == 0 || len(cols) == 0 || len(values) != len(rows) {
		return nil, fmt.Errorf("heatmap %q: %w", title, ErrNoData)
	}
	g := make(grid, len(rows))
	lo, hi := math.Inf(1), math.Inf(-1)
	var xys plotter.XYs
	var texts []string
	for r := range rows {
		if len(values[r]) != len(cols) {
			return nil, fmt.Errorf("heatmap %q: row %s has %d values, want %d", title, rows[r], len(values[r]), len(cols))
		}
		g[r] = values[r]
		for c, v := range values[r] {
			if math.IsNaN(v) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			texts = append(texts, fmt.Sprintf("%.2f", v))
		}
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("heatmap %q: %w", title, ErrNoData)
	}
	pal, err := newGradient(yellowOrangeRed, 64)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	h := plotter.NewHeatMap(g, pal)
	h.NaN = color.White
	if hi > lo {
		h.Min, h.Max = lo, hi
	} else {
		h.Min, h.Max = lo-1, hi+1
	}
	p.Add(h)

	if err := addLabels(p, xys, texts); err != nil {
		return nil, err
	}
	p.NominalX(cols...)
	p.NominalY(rows...)

	// colour scale
	scale := make([]string, 0, 3)
	for _, v := range []float64{h.Min, (h.Min + h.Max) / 2, h.Max} {
		scale = append(scale, fmt.Sprintf("%.2f", v))
	}
	thumbs := []color.Color{pal[0], pal[len(pal)/2], pal[len(pal)-1]}
	for i, t := range scale {
		p.Legend.Add(t, swatch{thumbs[i]})
	}
	p.Legend.Top = true
	p.Legend.Left = false
	return p, nil
}

// swatch is a filled legend thumbnail.
type swatch struct{ c color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.c, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	})
}

// Lines draws one line with markers per series across nominal x positions.
// values is indexed [series][x]; NaN values break the line.
func Lines(s Style, title, xlabel, ylabel string, xs, series []string, values [][]float64) (*plot.Plot, error) {
	if len(xs) == 0 || len(series) == 0 || len(values) != len(series) {
		return nil, fmt.Errorf("line plot %q: %w", title, ErrNoData)
	}
	p := newPlot(title, xlabel, ylabel)
	for i, name := range series {
		var pts plotter.XYs
		for j, v := range values[i] {
			if math.IsNaN(v) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(j), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		l, sc, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", name, err)
		}
		l.Color = s.Color(i)
		l.Width = vg.Points(2)
		sc.GlyphStyle.Color = s.Color(i)
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(l, sc)
		p.Legend.Add(name, l, sc)
	}
	p.Legend.Top = true
	p.NominalX(xs...)
	return p, nil
}
