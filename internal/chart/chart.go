// Package chart renders the PNG figures of the descriptive and hypothesis
// stages with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gopkg.in/go-playground/colors.v1"

	"github.com/KaramelBytes/cyclestats-cli/internal/utils"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("chart has no data")

// Style holds the output size and colours shared by all charts.
type Style struct {
	Width, Height vg.Length
	DPI           int
	Palette       []color.Color
}

// NewStyle builds a style from a size in inches, a resolution and hex colours.
func NewStyle(widthIn, heightIn float64, dpi int, hexes []string) (Style, error) {
	if widthIn <= 0 || heightIn <= 0 || dpi <= 0 {
		return Style{}, fmt.Errorf("invalid chart size %gx%g in at %d dpi", widthIn, heightIn, dpi)
	}
	pal, err := ParsePalette(hexes)
	if err != nil {
		return Style{}, err
	}
	return Style{
		Width:   vg.Length(widthIn) * vg.Inch,
		Height:  vg.Length(heightIn) * vg.Inch,
		DPI:     dpi,
		Palette: pal,
	}, nil
}

// ParsePalette converts "#rrggbb" strings to colours.
func ParsePalette(hexes []string) ([]color.Color, error) {
	if len(hexes) == 0 {
		return nil, errors.New("palette is empty")
	}
	out := make([]color.Color, len(hexes))
	for i, h := range hexes {
		c, err := parseHex(h)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func parseHex(h string) (color.RGBA, error) {
	hex, err := colors.ParseHEX(h)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse colour %q: %w", h, err)
	}
	rgb := hex.ToRGB()
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}, nil
}

// Color returns the i-th palette colour, cycling.
func (s Style) Color(i int) color.Color {
	if len(s.Palette) == 0 {
		return plotter.DefaultLineStyle.Color
	}
	return s.Palette[i%len(s.Palette)]
}

// Save renders p to a PNG at path.
func (s Style) Save(p *plot.Plot, path string) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	c := vgimg.NewWith(vgimg.UseWH(s.Width, s.Height), vgimg.UseDPI(s.DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return f.Close()
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)
	return p
}
