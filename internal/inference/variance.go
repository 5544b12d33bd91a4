package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Levene tests equality of variances across groups using absolute deviations
// from the group medians (the Brown-Forsythe variant).
func Levene(samples []Sample) (Result, error) {
	groups := clean(samples)
	res := Result{Test: "Levene"}
	k := len(groups)
	if k < 2 {
		return res, ErrTooFewGroups
	}
	n := total(groups)
	if n-k < 1 {
		return res, fmt.Errorf("levene needs more values than groups: %w", ErrTooFewValues)
	}

	z := make([][]float64, k)
	zbar := make([]float64, k)
	var grand float64
	for i, g := range groups {
		med := numeric.Median(g.Values)
		z[i] = make([]float64, len(g.Values))
		for j, v := range g.Values {
			z[i][j] = math.Abs(v - med)
		}
		zbar[i] = stat.Mean(z[i], nil)
		grand += zbar[i] * float64(len(z[i]))
	}
	grand /= float64(n)

	var between, within float64
	for i := range z {
		d := zbar[i] - grand
		between += float64(len(z[i])) * d * d
		for _, v := range z[i] {
			e := v - zbar[i]
			within += e * e
		}
	}
	if within == 0 {
		return res, fmt.Errorf("levene: %w", ErrConstantInput)
	}
	res.DF1 = float64(k - 1)
	res.DF2 = float64(n - k)
	res.Statistic = (res.DF2 / res.DF1) * between / within
	res.P = distuv.F{D1: res.DF1, D2: res.DF2}.Survival(res.Statistic)
	return res, nil
}
