package inference

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// KruskalWallis is the rank-based test that all groups share one
// distribution, with the usual correction for ties.
func KruskalWallis(samples []Sample) (Result, error) {
	groups := clean(samples)
	res := Result{Test: "Kruskal-Wallis"}
	k := len(groups)
	if k < 2 {
		return res, ErrTooFewGroups
	}
	all := pooled(groups)
	n := float64(len(all))
	ranks, ties := numeric.Ranks(all)

	var h float64
	off := 0
	for _, g := range groups {
		var r float64
		for i := range g.Values {
			r += ranks[off+i]
		}
		off += len(g.Values)
		h += r * r / float64(len(g.Values))
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	var t float64
	for _, c := range ties {
		tc := float64(c)
		t += tc*tc*tc - tc
	}
	corr := 1 - t/(n*n*n-n)
	if corr <= 0 {
		return res, fmt.Errorf("kruskal-wallis: %w", ErrConstantInput)
	}
	res.Statistic = h / corr
	res.DF1 = float64(k - 1)
	res.P = distuv.ChiSquared{K: res.DF1}.Survival(res.Statistic)
	return res, nil
}

// Comparison is one pairwise post-hoc comparison between groups A and B.
type Comparison struct {
	A, B      string
	MeanDiff  float64 // mean(B) - mean(A)
	Statistic float64
	P         float64
	// Lower and Upper bound the confidence interval of MeanDiff when the
	// procedure provides one; NaN otherwise.
	Lower, Upper float64
	Reject       bool
}

// Bonferroni returns the per-comparison significance level for m comparisons.
func Bonferroni(alpha float64, m int) float64 {
	if m < 1 {
		return alpha
	}
	return alpha / float64(m)
}

// Pairs is the number of unordered pairs among k groups.
func Pairs(k int) int { return k * (k - 1) / 2 }

// MannWhitney runs the two-sided Mann-Whitney U test.
func MannWhitney(a, b []float64) (Result, error) {
	x, y := numeric.Finite(a), numeric.Finite(b)
	res := Result{Test: "Mann-Whitney U"}
	if len(x) == 0 || len(y) == 0 {
		return res, fmt.Errorf("mann-whitney: %w", ErrTooFewValues)
	}
	r, err := stats.MannWhitneyUTest(x, y, stats.LocationDiffers)
	if err != nil {
		if errors.Is(err, stats.ErrSamplesEqual) {
			return res, fmt.Errorf("mann-whitney: %w", ErrConstantInput)
		}
		return res, fmt.Errorf("mann-whitney: %w", err)
	}
	res.Statistic = r.U
	res.P = r.P
	return res, nil
}

// PairwiseMannWhitney compares every pair of groups, rejecting at the
// Bonferroni-corrected level. Pairs that cannot be tested get a NaN p-value
// and are not rejected.
func PairwiseMannWhitney(samples []Sample, alpha float64) ([]Comparison, float64) {
	groups := clean(samples)
	level := Bonferroni(alpha, Pairs(len(groups)))
	var out []Comparison
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			c := Comparison{
				A:        groups[i].Name,
				B:        groups[j].Name,
				MeanDiff: stat.Mean(groups[j].Values, nil) - stat.Mean(groups[i].Values, nil),
				Lower:    math.NaN(),
				Upper:    math.NaN(),
			}
			r, err := MannWhitney(groups[i].Values, groups[j].Values)
			if err != nil {
				c.Statistic, c.P = math.NaN(), math.NaN()
			} else {
				c.Statistic, c.P = r.Statistic, r.P
				c.Reject = r.P < level
			}
			out = append(out, c)
		}
	}
	return out, level
}
