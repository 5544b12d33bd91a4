package inference

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func normalScores(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
	}
	return out
}

func exponentialScores(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = -math.Log(1 - (float64(i)+0.5)/float64(n))
	}
	return out
}

func TestShapiroWilkSmallSamples(t *testing.T) {
	r, err := ShapiroWilk([]float64{4, 1, 2})
	require.NoError(t, err)
	w := 40.5 / 42
	assert.InDelta(t, w, r.Statistic, 1e-12)
	assert.InDelta(t, 6/math.Pi*(math.Asin(math.Sqrt(w))-math.Pi/3), r.P, 1e-12)

	r, err = ShapiroWilk([]float64{1, 2, 3, math.NaN()})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Statistic, 1e-12)
	assert.InDelta(t, 1.0, r.P, 1e-9)
}

func TestShapiroWilkDecisions(t *testing.T) {
	for _, n := range []int{8, 30, 200} {
		r, err := ShapiroWilk(normalScores(n))
		require.NoError(t, err)
		assert.Greater(t, r.Statistic, 0.97, "n=%d", n)
		assert.Greater(t, r.P, 0.5, "n=%d", n)
	}
	r, err := ShapiroWilk(exponentialScores(50))
	require.NoError(t, err)
	assert.Less(t, r.P, 0.01)
}

func TestShapiroWilkReferenceSample(t *testing.T) {
	// mtcars$mpg; R shapiro.test gives W = 0.94756, p-value = 0.1229
	mpg := []float64{
		21.0, 21.0, 22.8, 21.4, 18.7, 18.1, 14.3, 24.4, 22.8, 19.2, 17.8,
		16.4, 17.3, 15.2, 10.4, 10.4, 14.7, 32.4, 30.4, 33.9, 21.5, 15.5,
		15.2, 13.3, 19.2, 27.3, 26.0, 30.4, 15.8, 19.7, 15.0, 21.4,
	}
	r, err := ShapiroWilk(mpg)
	require.NoError(t, err)
	assert.InDelta(t, 0.947565, r.Statistic, 1e-5)
	assert.InDelta(t, 0.122881, r.P, 1e-5)
}

func TestShapiroWilkErrors(t *testing.T) {
	_, err := ShapiroWilk([]float64{1, 2})
	assert.True(t, errors.Is(err, ErrTooFewValues))
	_, err = ShapiroWilk([]float64{5, 5, 5, 5})
	assert.True(t, errors.Is(err, ErrConstantInput))
}

func TestAndersonDarling(t *testing.T) {
	r, err := AndersonDarling(normalScores(100))
	require.NoError(t, err)
	require.Len(t, r.Critical, len(ADLevels))
	assert.True(t, r.Normal())
	assert.InDelta(t, 1.092/(1+0.04-0.0025), r.Critical[4], 1e-12)

	r, err = AndersonDarling(exponentialScores(200))
	require.NoError(t, err)
	assert.False(t, r.Normal())

	_, err = AndersonDarling([]float64{2, 2, 2})
	assert.True(t, errors.Is(err, ErrConstantInput))
}

func TestLevene(t *testing.T) {
	a := []float64{8.88, 9.12, 9.04, 8.98, 9.00, 9.08, 9.01, 8.85, 9.06, 8.99}
	b := []float64{8.88, 8.95, 9.29, 9.44, 9.15, 9.58, 8.36, 9.18, 8.67, 9.05}
	c := []float64{8.95, 9.12, 8.95, 8.85, 9.03, 8.84, 9.07, 8.98, 8.86, 8.98}
	r, err := Levene([]Sample{{"a", a}, {"b", b}, {"c", c}})
	require.NoError(t, err)
	assert.InDelta(t, 7.584952754501659, r.Statistic, 1e-6)
	assert.InDelta(t, 0.002431505967249681, r.P, 1e-6)
	assert.Equal(t, 2.0, r.DF1)
	assert.Equal(t, 27.0, r.DF2)

	_, err = Levene([]Sample{{"a", a}})
	assert.True(t, errors.Is(err, ErrTooFewGroups))
}

func TestOneWayANOVA(t *testing.T) {
	samples := []Sample{
		{"tillamook", []float64{0.0571, 0.0813, 0.0831, 0.0976, 0.0817, 0.0859, 0.0735, 0.0659, 0.0923, 0.0836}},
		{"newport", []float64{0.0873, 0.0662, 0.0672, 0.0819, 0.0749, 0.0649, 0.0835, 0.0725}},
		{"petersburg", []float64{0.0974, 0.1352, 0.0817, 0.1016, 0.0968, 0.1064, 0.105}},
		{"magadan", []float64{0.1033, 0.0915, 0.0781, 0.0685, 0.0677, 0.0697, 0.0764, 0.0689}},
		{"tvarminne", []float64{0.0703, 0.1026, 0.0956, 0.0973, 0.1039, 0.1045}},
	}
	r, err := OneWayANOVA(samples)
	require.NoError(t, err)
	assert.InDelta(t, 7.121019471642447, r.Statistic, 1e-6)
	assert.InDelta(t, 0.0002812242314534544, r.P, 1e-7)
	assert.True(t, r.Significant(0.05))
}

func TestKruskalWallis(t *testing.T) {
	r, err := KruskalWallis([]Sample{
		{"x", []float64{1, 3, 5, 7, 9}},
		{"y", []float64{2, 4, 6, 8, 10}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 3.0/11, r.Statistic, 1e-12)
	assert.InDelta(t, distuv.ChiSquared{K: 1}.Survival(3.0/11), r.P, 1e-12)
	assert.InDelta(t, 0.6015081344405895, r.P, 1e-6)

	// ties: ranks 1.5 1.5 3 | 4 5.5 5.5
	r, err = KruskalWallis([]Sample{
		{"x", []float64{1, 1, 2}},
		{"y", []float64{3, 4, 4}},
	})
	require.NoError(t, err)
	h := 12.0/42*(36.0/3+225.0/3) - 21
	assert.InDelta(t, h/(1-12.0/210), r.Statistic, 1e-12)

	_, err = KruskalWallis([]Sample{{"x", []float64{1, 1}}, {"y", []float64{1, 1}}})
	assert.True(t, errors.Is(err, ErrConstantInput))
}

func TestMannWhitney(t *testing.T) {
	r, err := MannWhitney([]float64{1, 2, 3, 4, 5}, []float64{6, 7, 8, 9, 10})
	require.NoError(t, err)
	assert.True(t, r.Statistic == 0 || r.Statistic == 25, "U = %v", r.Statistic)
	assert.Greater(t, r.P, 0.0)
	assert.Less(t, r.P, 0.02)

	_, err = MannWhitney([]float64{2, 2}, []float64{2, 2})
	assert.True(t, errors.Is(err, ErrConstantInput))
}

func TestPairwiseMannWhitneyBonferroni(t *testing.T) {
	samples := []Sample{
		{"a", []float64{1, 2, 3, 4, 5, 6}},
		{"b", []float64{11, 12, 13, 14, 15, 16}},
		{"c", []float64{1.5, 2.5, 3.5, 4.5, 5.5, 6.5}},
	}
	cmp, level := PairwiseMannWhitney(samples, 0.05)
	assert.InDelta(t, 0.05/3, level, 1e-15)
	require.Len(t, cmp, 3)
	assert.Equal(t, "a", cmp[0].A)
	assert.Equal(t, "b", cmp[0].B)
	assert.True(t, cmp[0].Reject)
	assert.False(t, cmp[1].Reject)
	assert.True(t, math.IsNaN(cmp[1].Lower))
	assert.Equal(t, 3, Pairs(3))
	assert.Equal(t, 0.05, Bonferroni(0.05, 0))
}

func TestPTukeyTwoGroupsMatchesT(t *testing.T) {
	for _, df := range []float64{5, 20, 60} {
		tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		for _, q := range []float64{0.5, 1, 2.5, 4} {
			want := 2*tdist.CDF(q/math.Sqrt2) - 1
			assert.InDelta(t, want, PTukey(q, 2, df), 1e-5, "q=%v df=%v", q, df)
		}
	}
	assert.Equal(t, 0.0, PTukey(0, 3, 10))
	assert.True(t, math.IsNaN(PTukey(1, 1, 10)))
}

func TestQTukeyTableValues(t *testing.T) {
	assert.InDelta(t, 3.877, QTukey(0.95, 3, 10), 0.005)
	assert.InDelta(t, 3.958, QTukey(0.95, 4, 20), 0.005)
	q := QTukey(0.9, 5, 30)
	assert.InDelta(t, 0.9, PTukey(q, 5, 30), 1e-8)
}

func TestTukeyHSDTwoGroupsIsPooledT(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{3, 4, 5, 6, 7}
	cmp, err := TukeyHSD([]Sample{{"b", b}, {"a", a}}, 0.05)
	require.NoError(t, err)
	require.Len(t, cmp, 1)
	c := cmp[0]
	assert.Equal(t, "a", c.A)
	assert.Equal(t, "b", c.B)
	assert.InDelta(t, 2.5, c.MeanDiff, 1e-12)

	// pooled variance: (5 + 10) / 7
	se := math.Sqrt(15.0 / 7 * (1.0/4 + 1.0/5))
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 7}
	tstat := 2.5 / se
	assert.InDelta(t, 2*tdist.Survival(tstat), c.P, 1e-5)
	tcrit := tdist.Quantile(0.975)
	assert.InDelta(t, 2.5-tcrit*se, c.Lower, 1e-4)
	assert.InDelta(t, 2.5+tcrit*se, c.Upper, 1e-4)
	assert.Equal(t, c.P < 0.05, c.Reject)
}

func TestTwoWayANOVABalanced(t *testing.T) {
	obs := []Observation{
		{"a1", "b1", 1}, {"a1", "b1", 3},
		{"a1", "b2", 5}, {"a1", "b2", 7},
		{"a2", "b1", 2}, {"a2", "b1", 4},
		{"a2", "b2", 10}, {"a2", "b2", 12},
		{"a2", "b2", math.NaN()},
	}
	r, err := TwoWayANOVA(obs, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, r.LevelsA)
	assert.Equal(t, 4, r.Cells)

	assert.InDelta(t, 18.0, r.A.SS, 1e-9)
	assert.InDelta(t, 72.0, r.B.SS, 1e-9)
	assert.InDelta(t, 8.0, r.Interaction.SS, 1e-9)
	assert.InDelta(t, 8.0, r.Residual.SS, 1e-9)
	assert.Equal(t, 4.0, r.Residual.DF)
	assert.Equal(t, 1.0, r.Interaction.DF)

	assert.InDelta(t, 9.0, r.A.F, 1e-9)
	assert.InDelta(t, 36.0, r.B.F, 1e-9)
	assert.InDelta(t, 4.0, r.Interaction.F, 1e-9)
	assert.InDelta(t, distuv.F{D1: 1, D2: 4}.Survival(9), r.A.P, 1e-12)
	assert.Equal(t, "A:B", r.Interaction.Source)
	assert.Len(t, r.Rows(), 4)
}

func TestTwoWayANOVAUnbalancedTypeII(t *testing.T) {
	cells := map[[2]string][]float64{
		{"a1", "b1"}: {3, 5, 4},
		{"a1", "b2"}: {8, 9},
		{"a1", "b3"}: {6, 7, 5, 6},
		{"a2", "b1"}: {6, 8},
		{"a2", "b2"}: {12, 14, 13},
		{"a2", "b3"}: {7, 9},
	}
	var obs []Observation
	for k, ys := range cells {
		for _, y := range ys {
			obs = append(obs, Observation{k[0], k[1], y})
		}
	}
	r, err := TwoWayANOVA(obs, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 6, r.Cells)

	// statsmodels anova_lm(ols("y ~ A * B"), typ=2); sequential SS(A) would be 62.004
	assert.InDelta(t, 875.0/24, r.A.SS, 1e-9)
	assert.InDelta(t, 184643.0/2520, r.B.SS, 1e-9)
	assert.InDelta(t, 3.975, r.Interaction.SS, 1e-9)
	assert.InDelta(t, 10.5, r.Residual.SS, 1e-9)
	assert.Equal(t, []float64{1, 2, 2, 10}, []float64{r.A.DF, r.B.DF, r.Interaction.DF, r.Residual.DF})

	assert.InDelta(t, 34.722222, r.A.F, 1e-6)
	assert.InDelta(t, 34.890967, r.B.F, 1e-6)
	assert.InDelta(t, 1.892857, r.Interaction.F, 1e-6)
	assert.InDelta(t, 1.525797e-4, r.A.P, 1e-9)
	assert.InDelta(t, 3.093693e-5, r.B.P, 1e-10)
	assert.InDelta(t, 0.200842, r.Interaction.P, 1e-6)
}

func TestTwoWayANOVAIncompleteDesign(t *testing.T) {
	obs := []Observation{
		{"a1", "b1", 1}, {"a1", "b1", 2},
		{"a1", "b2", 4}, {"a1", "b2", 6},
		{"a2", "b1", 3}, {"a2", "b1", 5},
	}
	r, err := TwoWayANOVA(obs, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.Interaction.DF)
	assert.True(t, math.IsNaN(r.Interaction.P))
	assert.False(t, math.IsNaN(r.A.P))

	_, err = TwoWayANOVA([]Observation{{"a1", "b1", 1}, {"a1", "b2", 2}}, "A", "B")
	assert.True(t, errors.Is(err, ErrTooFewGroups))
}
