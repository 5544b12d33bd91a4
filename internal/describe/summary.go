// Package describe computes grouped descriptive statistics of rider points.
package describe

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/cyclestats-cli/internal/dataset"
	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Summary holds the descriptive statistics of one set of points.
// Skewness and kurtosis are the biased population estimates, kurtosis in
// excess form (0 for a normal distribution).
type Summary struct {
	Count    int // finite values
	Missing  int // NaN values excluded
	Mean     float64
	Median   float64
	Std      float64 // ddof = 1
	Var      float64
	Min      float64
	Max      float64
	Q25      float64
	Q75      float64
	IQR      float64
	Range    float64
	Skew     float64
	Kurtosis float64
	CV       float64 // percent
	ZeroPct  float64 // percent of all values, missing included
}

// Summarize describes xs. Undefined statistics are NaN.
func Summarize(xs []float64) Summary {
	vals := numeric.Sorted(numeric.Finite(xs))
	s := Summary{Count: len(vals), Missing: len(xs) - len(vals)}
	nan := math.NaN()
	s.Mean, s.Median, s.Std, s.Var = nan, nan, nan, nan
	s.Min, s.Max, s.Q25, s.Q75, s.IQR, s.Range = nan, nan, nan, nan, nan, nan
	s.Skew, s.Kurtosis, s.CV, s.ZeroPct = nan, nan, nan, nan
	if len(xs) > 0 {
		zeros := 0
		for _, v := range vals {
			if v == 0 {
				zeros++
			}
		}
		s.ZeroPct = float64(zeros) * 100 / float64(len(xs))
	}
	if len(vals) == 0 {
		return s
	}

	s.Mean = stat.Mean(vals, nil)
	s.Min, s.Max = vals[0], vals[len(vals)-1]
	s.Range = s.Max - s.Min
	s.Median = numeric.Quantile(vals, 0.5)
	s.Q25 = numeric.Quantile(vals, 0.25)
	s.Q75 = numeric.Quantile(vals, 0.75)
	s.IQR = s.Q75 - s.Q25
	if len(vals) > 1 {
		s.Var = stat.Variance(vals, nil)
		s.Std = math.Sqrt(s.Var)
		if s.Mean != 0 {
			s.CV = s.Std / s.Mean * 100
		}
	}
	m2 := stat.Moment(2, vals, nil)
	if m2 > 0 {
		s.Skew = stat.Moment(3, vals, nil) / math.Pow(m2, 1.5)
		s.Kurtosis = stat.Moment(4, vals, nil)/(m2*m2) - 3
	}
	return s
}

// Group is the summary of one group of records.
type Group struct {
	Key        string
	RiderClass string
	StageClass string
	Summary
}

// Analysis is the full descriptive breakdown of a dataset.
type Analysis struct {
	Rows    int
	Overall Summary
	ByRider []Group
	ByStage []Group
	ByCross []Group
}

// Analyze computes the overall summary and the rider class, stage class and
// rider x stage breakdowns. Groups are sorted by key; only non-empty cross
// cells are present.
func Analyze(recs []dataset.Record) *Analysis {
	a := &Analysis{Rows: len(recs), Overall: Summarize(dataset.PointsOf(recs))}
	for _, g := range dataset.GroupBy(recs, dataset.ByRiderClass) {
		a.ByRider = append(a.ByRider, Group{Key: g.Key, RiderClass: g.Key, Summary: Summarize(g.Points())})
	}
	for _, g := range dataset.GroupBy(recs, dataset.ByStageClass) {
		a.ByStage = append(a.ByStage, Group{Key: g.Key, StageClass: g.Key, Summary: Summarize(g.Points())})
	}
	for _, rg := range dataset.GroupBy(recs, dataset.ByRiderClass) {
		for _, sg := range dataset.GroupBy(rg.Records, dataset.ByStageClass) {
			a.ByCross = append(a.ByCross, Group{
				Key:        rg.Key + " / " + sg.Key,
				RiderClass: rg.Key,
				StageClass: sg.Key,
				Summary:    Summarize(sg.Points()),
			})
		}
	}
	return a
}

// WeightedMean is the count-weighted mean of the group means. For any
// partition of the data it equals the overall mean.
func WeightedMean(groups []Group) float64 {
	var sum float64
	var n int
	for _, g := range groups {
		if g.Count == 0 {
			continue
		}
		sum += g.Mean * float64(g.Count)
		n += g.Count
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// CrossMean returns the mean points of a rider class on a stage class.
func (a *Analysis) CrossMean(rider, stage string) (float64, bool) {
	for _, g := range a.ByCross {
		if g.RiderClass == rider && g.StageClass == stage {
			return g.Mean, g.Count > 0
		}
	}
	return math.NaN(), false
}

// RiderClasses returns the rider class keys in report order.
func (a *Analysis) RiderClasses() []string { return keys(a.ByRider) }

// StageClasses returns the stage class keys in report order.
func (a *Analysis) StageClasses() []string { return keys(a.ByStage) }

func keys(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}
