package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/cyclestats-cli/internal/numeric"
)

// Shapiro-Wilk polynomial coefficients (Royston 1995, AS R94).
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilk tests the null hypothesis that xs was drawn from a normal
// distribution. It needs at least 3 values; the p-value approximation is
// accurate up to 5000 values.
func ShapiroWilk(xs []float64) (Result, error) {
	x := numeric.Sorted(numeric.Finite(xs))
	n := len(x)
	res := Result{Test: "Shapiro-Wilk"}
	if n < 3 {
		return res, fmt.Errorf("shapiro-wilk needs 3 values, got %d: %w", n, ErrTooFewValues)
	}
	if x[n-1]-x[0] == 0 {
		return res, fmt.Errorf("shapiro-wilk: %w", ErrConstantInput)
	}

	a := swCoefficients(n)
	var num float64
	for i := 0; i < n/2; i++ {
		num += a[i] * (x[n-1-i] - x[i])
	}
	w := num * num / sumSquares(x)
	if w > 1 {
		w = 1
	}
	res.Statistic = w
	res.P = swPValue(w, n)
	return res, nil
}

// swCoefficients returns the first n/2 weights; the rest are antisymmetric.
func swCoefficients(n int) []float64 {
	nn2 := n / 2
	a := make([]float64, nn2)
	if n == 3 {
		a[0] = math.Sqrt2 / 2
		return a
	}
	an25 := float64(n) + 0.25
	m := make([]float64, nn2)
	var summ2 float64
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / an25)
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(float64(n))
	a1 := poly(swC1, rsn) - m[0]/ssumm2

	var fac float64
	first := 1
	if n > 5 {
		first = 2
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < nn2; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

func swPValue(w float64, n int) float64 {
	if n == 3 {
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Pi/3)
		return clamp01(p)
	}
	w1 := math.Log(1 - w)
	fn := float64(n)
	var m, s, y float64
	if n <= 11 {
		gamma := poly(swG, fn)
		if w1 >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - w1)
		m = poly(swC3, fn)
		s = math.Exp(poly(swC4, fn))
	} else {
		ln := math.Log(fn)
		y = w1
		m = poly(swC5, ln)
		s = math.Exp(poly(swC6, ln))
	}
	return clamp01(distuv.UnitNormal.Survival((y - m) / s))
}

// ADLevels are the significance levels, in percent, of ADResult.Critical.
var ADLevels = []float64{15, 10, 5, 2.5, 1}

var adCritical = []float64{0.576, 0.656, 0.787, 0.918, 1.092}

// ADResult is an Anderson-Darling test for normality. It has no p-value; the
// statistic is compared with critical values at ADLevels.
type ADResult struct {
	Statistic float64
	Critical  []float64
}

// Normal reports whether normality is retained at the 1% level.
func (r ADResult) Normal() bool { return r.Statistic < r.Critical[len(r.Critical)-1] }

// AndersonDarling tests xs against a normal distribution with estimated
// mean and variance.
func AndersonDarling(xs []float64) (ADResult, error) {
	y := numeric.Sorted(numeric.Finite(xs))
	n := len(y)
	if n < 3 {
		return ADResult{}, fmt.Errorf("anderson-darling needs 3 values, got %d: %w", n, ErrTooFewValues)
	}
	mean, sd := stat.MeanStdDev(y, nil)
	if sd == 0 {
		return ADResult{}, fmt.Errorf("anderson-darling: %w", ErrConstantInput)
	}
	fn := float64(n)
	var s float64
	for i := 0; i < n; i++ {
		lo := (y[i] - mean) / sd
		hi := (y[n-1-i] - mean) / sd
		s += float64(2*i+1) / fn * (math.Log(distuv.UnitNormal.CDF(lo)) + math.Log(distuv.UnitNormal.Survival(hi)))
	}
	res := ADResult{Statistic: -fn - s, Critical: make([]float64, len(adCritical))}
	adj := 1 + 4/fn - 25/(fn*fn)
	for i, c := range adCritical {
		res.Critical[i] = c / adj
	}
	return res, nil
}
