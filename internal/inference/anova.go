package inference

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// OneWayANOVA tests whether the group means are equal.
func OneWayANOVA(samples []Sample) (Result, error) {
	groups := clean(samples)
	res := Result{Test: "One-way ANOVA"}
	k := len(groups)
	if k < 2 {
		return res, ErrTooFewGroups
	}
	n := total(groups)
	if n-k < 1 {
		return res, fmt.Errorf("anova needs more values than groups: %w", ErrTooFewValues)
	}
	grand := stat.Mean(pooled(groups), nil)
	var ssb, ssw float64
	for _, g := range groups {
		m := stat.Mean(g.Values, nil)
		d := m - grand
		ssb += float64(len(g.Values)) * d * d
		ssw += sumSquares(g.Values)
	}
	if ssw == 0 {
		return res, fmt.Errorf("anova: %w", ErrConstantInput)
	}
	res.DF1 = float64(k - 1)
	res.DF2 = float64(n - k)
	res.Statistic = (ssb / res.DF1) / (ssw / res.DF2)
	res.P = distuv.F{D1: res.DF1, D2: res.DF2}.Survival(res.Statistic)
	return res, nil
}

// withinMSE returns the pooled within-group mean square and its degrees of freedom.
func withinMSE(groups []Sample) (float64, float64) {
	var ssw float64
	for _, g := range groups {
		ssw += sumSquares(g.Values)
	}
	df := float64(total(groups) - len(groups))
	return ssw / df, df
}
