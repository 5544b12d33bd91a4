// Package inference implements the significance tests used by the hypothesis
// stage. Functions are pure: they take samples and return results, dropping
// NaN and infinite values before computing anything.
package inference

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

var (
	// ErrTooFewValues is returned when a sample is too small for the test.
	ErrTooFewValues = errors.New("too few values")
	// ErrTooFewGroups is returned when a k-sample test gets fewer than two groups.
	ErrTooFewGroups = errors.New("at least two non-empty groups are required")
	// ErrConstantInput is returned when the test statistic is undefined
	// because all values are identical.
	ErrConstantInput = errors.New("all values are identical")
)

// Sample is a named group of observations.
type Sample struct {
	Name   string
	Values []float64
}

// Result is the outcome of a test with a single statistic.
type Result struct {
	Test      string
	Statistic float64
	P         float64
	DF1, DF2  float64 // zero when not applicable
}

// Significant reports whether the null hypothesis is rejected at alpha.
func (r Result) Significant(alpha float64) bool { return r.P < alpha }

// clean drops non-finite values and empty samples.
func clean(samples []Sample) []Sample {
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		v := numeric.Finite(s.Values)
		if len(v) == 0 {
			continue
		}
		out = append(out, Sample{Name: s.Name, Values: v})
	}
	return out
}

func total(samples []Sample) int {
	n := 0
	for _, s := range samples {
		n += len(s.Values)
	}
	return n
}

func pooled(samples []Sample) []float64 {
	out := make([]float64, 0, total(samples))
	for _, s := range samples {
		out = append(out, s.Values...)
	}
	return out
}

// sumSquares returns the sum of squared deviations from the mean.
func sumSquares(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := stat.Mean(xs, nil)
	var ss float64
	for _, v := range xs {
		d := v - m
		ss += d * d
	}
	return ss
}

// poly evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func poly(c []float64, x float64) float64 {
	res := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		res = res*x + c[i]
	}
	return res
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
