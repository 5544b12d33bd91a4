// Package hypothesis answers the two research questions: do rider classes
// differ in points, and does that difference depend on the stage class.
package hypothesis

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/cyclestats-cli/internal/inference"
	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Options configures the decisions made while testing.
type Options struct {
	Alpha float64
	// LargeSample is the group size above which Anderson-Darling replaces
	// Shapiro-Wilk.
	LargeSample int
}

// DefaultOptions returns alpha 0.05 and the 5000 value Shapiro-Wilk limit.
func DefaultOptions() Options {
	return Options{Alpha: 0.05, LargeSample: 5000}
}

// Normality is the normality check of one group.
type Normality struct {
	Group     string
	N         int
	Test      string
	Statistic float64
	P         float64 // NaN for Anderson-Darling
	Critical  float64 // 1% critical value for Anderson-Darling, NaN otherwise
	Normal    bool
}

// CheckNormality tests one group. It returns nil without error when the group
// has fewer than 3 finite values, which excludes it from the decision.
func CheckNormality(group string, xs []float64, opt Options) (*Normality, error) {
	vals := numeric.Finite(xs)
	if len(vals) < 3 {
		return nil, nil
	}
	n := &Normality{Group: group, N: len(vals)}
	if opt.LargeSample > 0 && len(vals) > opt.LargeSample {
		r, err := inference.AndersonDarling(vals)
		if err != nil {
			return nil, err
		}
		n.Test = "Anderson-Darling"
		n.Statistic = r.Statistic
		n.P = math.NaN()
		n.Critical = r.Critical[len(r.Critical)-1]
		n.Normal = r.Normal()
		return n, nil
	}
	r, err := inference.ShapiroWilk(vals)
	if err != nil {
		return nil, err
	}
	n.Test = r.Test
	n.Statistic = r.Statistic
	n.P = r.P
	n.Critical = math.NaN()
	n.Normal = r.P > opt.Alpha
	return n, nil
}

// Choice is the family of tests selected for a comparison.
type Choice int

const (
	NonParametric Choice = iota
	Parametric
)

func (c Choice) String() string {
	if c == Parametric {
		return "parametric"
	}
	return "non-parametric"
}

// SelectTest picks ANOVA with Tukey HSD only when every checked group is
// normal and the variances are homogeneous. Without any normality result
// there is no evidence for normality and the rank-based tests are used.
func SelectTest(normality []Normality, equalVariances bool) Choice {
	if len(normality) == 0 || !equalVariances {
		return NonParametric
	}
	for _, n := range normality {
		if !n.Normal {
			return NonParametric
		}
	}
	return Parametric
}

// GroupTest is a complete k-group comparison: assumption checks, the main
// test and, when it is significant, the post-hoc comparisons.
type GroupTest struct {
	Label     string
	Groups    []string
	Sizes     []int
	Normality []Normality
	Skipped   []string // groups too small for a normality check

	Levene         *inference.Result
	EqualVariances bool
	Choice         Choice

	Main    *inference.Result
	PostHoc []inference.Comparison
	// PostHocTest is empty when no post-hoc test ran.
	PostHocTest string
	// PostHocAlpha is the per-comparison level (Bonferroni-corrected for
	// Mann-Whitney).
	PostHocAlpha float64
	Comparisons  int

	Warnings []string
}

// Significant reports whether the main test rejected at alpha.
func (g *GroupTest) Significant(alpha float64) bool {
	return g.Main != nil && g.Main.P < alpha
}

// CompareGroups runs the assumption checks, chooses between ANOVA and
// Kruskal-Wallis and, if posthoc is set and the main test is significant,
// runs Tukey HSD or Bonferroni-corrected Mann-Whitney tests. Failures of
// individual tests become warnings.
func CompareGroups(label string, samples []inference.Sample, opt Options, posthoc bool) *GroupTest {
	g := &GroupTest{Label: label}
	var usable []inference.Sample
	for _, s := range samples {
		vals := numeric.Finite(s.Values)
		g.Groups = append(g.Groups, s.Name)
		g.Sizes = append(g.Sizes, len(vals))
		if len(vals) > 0 {
			usable = append(usable, inference.Sample{Name: s.Name, Values: vals})
		}
		n, err := CheckNormality(s.Name, vals, opt)
		switch {
		case err != nil:
			g.warn("normality test for %s failed: %v", s.Name, err)
			if errors.Is(err, inference.ErrConstantInput) {
				// a constant group is certainly not normal
				g.Normality = append(g.Normality, Normality{
					Group: s.Name, N: len(vals), Test: "Shapiro-Wilk",
					Statistic: math.NaN(), P: math.NaN(), Critical: math.NaN(),
				})
			}
		case n == nil:
			g.Skipped = append(g.Skipped, s.Name)
		default:
			g.Normality = append(g.Normality, *n)
		}
	}

	if lv, err := inference.Levene(usable); err != nil {
		g.warn("Levene's test failed: %v", err)
	} else {
		g.Levene = &lv
		g.EqualVariances = lv.P > opt.Alpha
	}
	g.Choice = SelectTest(g.Normality, g.EqualVariances)

	var main inference.Result
	var err error
	if g.Choice == Parametric {
		main, err = inference.OneWayANOVA(usable)
	} else {
		main, err = inference.KruskalWallis(usable)
	}
	if err != nil {
		g.warn("%s test failed: %v", g.Choice, err)
		return g
	}
	g.Main = &main

	if !posthoc || !g.Significant(opt.Alpha) {
		return g
	}
	g.Comparisons = inference.Pairs(len(usable))
	if g.Choice == Parametric {
		g.PostHocTest = "Tukey HSD"
		g.PostHocAlpha = opt.Alpha
		cmp, err := inference.TukeyHSD(usable, opt.Alpha)
		if err != nil {
			g.warn("Tukey HSD failed: %v", err)
			return g
		}
		g.PostHoc = cmp
		return g
	}
	g.PostHocTest = "Mann-Whitney U (Bonferroni)"
	g.PostHoc, g.PostHocAlpha = inference.PairwiseMannWhitney(usable, opt.Alpha)
	for _, c := range g.PostHoc {
		if math.IsNaN(c.P) {
			g.warn("Mann-Whitney U for %s vs %s could not be computed", c.A, c.B)
		}
	}
	return g
}

func (g *GroupTest) warn(format string, args ...any) {
	g.Warnings = append(g.Warnings, fmt.Sprintf(format, args...))
}
