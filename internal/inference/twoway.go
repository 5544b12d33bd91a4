package inference

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Observation is one response with its two factor levels.
type Observation struct {
	A, B string
	Y    float64
}

// ANOVARow is one line of an ANOVA table. F and P are NaN for the residual
// row and for effects without degrees of freedom.
type ANOVARow struct {
	Source string
	SS     float64
	DF     float64
	MS     float64
	F      float64
	P      float64
}

// TwoWayResult is a two-factor ANOVA table with interaction.
type TwoWayResult struct {
	A, B, Interaction, Residual ANOVARow
	LevelsA, LevelsB            []string
	Cells                       int // non-empty A x B cells
}

// Rows returns the table in display order.
func (r *TwoWayResult) Rows() []ANOVARow {
	return []ANOVARow{r.A, r.B, r.Interaction, r.Residual}
}

// TwoWayANOVA fits y ~ A + B + A:B and reports type II sums of squares: each
// main effect is adjusted for the other, the interaction for both. Unbalanced
// and incomplete designs are supported; an interaction with no degrees of
// freedom is reported with NaN F and P.
func TwoWayANOVA(obs []Observation, nameA, nameB string) (*TwoWayResult, error) {
	var data []Observation
	for _, o := range obs {
		if math.IsNaN(o.Y) || math.IsInf(o.Y, 0) {
			continue
		}
		data = append(data, o)
	}
	levelsA := levels(data, func(o Observation) string { return o.A })
	levelsB := levels(data, func(o Observation) string { return o.B })
	if len(levelsA) < 2 || len(levelsB) < 2 {
		return nil, fmt.Errorf("two-way anova needs two levels per factor: %w", ErrTooFewGroups)
	}

	n := len(data)
	rssA := withinSS(data, func(o Observation) string { return o.A })
	rssB := withinSS(data, func(o Observation) string { return o.B })
	rssFull := withinSS(data, func(o Observation) string { return o.A + "\x00" + o.B })
	cells := len(levels(data, func(o Observation) string { return o.A + "\x00" + o.B }))
	dfResid := float64(n - cells)
	if dfResid < 1 {
		return nil, fmt.Errorf("two-way anova needs replicated cells: %w", ErrTooFewValues)
	}
	if rssFull == 0 {
		return nil, fmt.Errorf("two-way anova: %w", ErrConstantInput)
	}
	rssAdd, err := additiveRSS(data, levelsA, levelsB)
	if err != nil {
		return nil, err
	}

	a, b := float64(len(levelsA)), float64(len(levelsB))
	msResid := rssFull / dfResid
	res := &TwoWayResult{
		LevelsA: levelsA,
		LevelsB: levelsB,
		Cells:   cells,
		A:       effect(nameA, rssB-rssAdd, a-1, msResid, dfResid),
		B:       effect(nameB, rssA-rssAdd, b-1, msResid, dfResid),
		Interaction: effect(nameA+":"+nameB, rssAdd-rssFull,
			float64(cells)-a-b+1, msResid, dfResid),
		Residual: ANOVARow{Source: "Residual", SS: rssFull, DF: dfResid, MS: msResid, F: math.NaN(), P: math.NaN()},
	}
	return res, nil
}

func effect(name string, ss, df, msResid, dfResid float64) ANOVARow {
	row := ANOVARow{Source: name, SS: math.Max(ss, 0), DF: df, MS: math.NaN(), F: math.NaN(), P: math.NaN()}
	if df < 1 {
		return row
	}
	row.MS = row.SS / df
	row.F = row.MS / msResid
	row.P = distuv.F{D1: df, D2: dfResid}.Survival(row.F)
	return row
}

func levels(data []Observation, key func(Observation) string) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range data {
		k := key(o)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// withinSS is the residual sum of squares of a model with one mean per key.
func withinSS(data []Observation, key func(Observation) string) float64 {
	groups := map[string][]float64{}
	for _, o := range data {
		k := key(o)
		groups[k] = append(groups[k], o.Y)
	}
	var ss float64
	for _, g := range groups {
		ss += sumSquares(g)
	}
	return ss
}

// additiveRSS fits y ~ A + B with treatment coding by least squares.
func additiveRSS(data []Observation, levelsA, levelsB []string) (float64, error) {
	idxA := index(levelsA)
	idxB := index(levelsB)
	p := 1 + len(levelsA) - 1 + len(levelsB) - 1
	n := len(data)
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, o := range data {
		x.Set(i, 0, 1)
		if j := idxA[o.A]; j > 0 {
			x.Set(i, j, 1)
		}
		if j := idxB[o.B]; j > 0 {
			x.Set(i, len(levelsA)-1+j, 1)
		}
		y.SetVec(i, o.Y)
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		// a finite condition number is only a precision warning
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return 0, fmt.Errorf("fit additive model: %w", err)
		}
	}
	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var rss float64
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - fitted.AtVec(i)
		rss += d * d
	}
	return rss, nil
}

func index(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return m
}
