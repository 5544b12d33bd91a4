package inference

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gauss-Legendre nodes and weights (half of a symmetric rule).
var (
	wprobNodes = []float64{
		0.981560634246719250690549090149,
		0.904117256370474856678465866119,
		0.769902674194304687036893833213,
		0.587317954286617447296702418941,
		0.367831498998180193752691536644,
		0.125233408511468915472441369464,
	}
	wprobWeights = []float64{
		0.047175336386511827194615961485,
		0.106939325995318430960254718194,
		0.160078328543346226334652529543,
		0.203167426723065921749064455810,
		0.233492536538354808760849898925,
		0.249147045813402785000562436043,
	}
	ptukeyNodes = []float64{
		0.989400934991649932596154173450,
		0.944575023073232576077988415535,
		0.865631202387831743880467897712,
		0.755404408355003033895101194847,
		0.617876244402643748446671764049,
		0.458016777657227386342419442984,
		0.281603550779258913230460501460,
		0.950125098376374401853193354250e-1,
	}
	ptukeyWeights = []float64{
		0.271524594117540948517805724560e-1,
		0.622535239386478928628438369944e-1,
		0.951585116824927848099251076022e-1,
		0.124628971255533872052476282192,
		0.149595988816576732081501730547,
		0.169156519395002538189312079030,
		0.182603415044923588866763667969,
		0.189450610455068496285396723208,
	}
)

// wprob is the probability that the range of k standard normal variables is
// below w.
func wprob(w, k float64) float64 {
	const (
		c1   = -30.0
		c2   = -50.0
		c3   = 60.0
		bb   = 8.0
		wlar = 3.0
	)
	qsqz := w * 0.5
	if qsqz >= bb {
		return 1
	}
	pr := 2*distuv.UnitNormal.CDF(qsqz) - 1
	if pr >= math.Exp(c2/k) {
		pr = math.Pow(pr, k)
	} else {
		pr = 0
	}

	wincr := 3
	if w > wlar {
		wincr = 2
	}
	blb := qsqz
	binc := (bb - qsqz) / float64(wincr)
	bub := blb + binc
	k1 := k - 1
	var einsum float64
	half := len(wprobNodes)
	for wi := 0; wi < wincr; wi++ {
		var elsum float64
		a := 0.5 * (bub + blb)
		b := 0.5 * (bub - blb)
		for jj := 1; jj <= 2*half; jj++ {
			var j int
			var xx float64
			if half < jj {
				j = 2*half - jj
				xx = wprobNodes[j]
			} else {
				j = jj - 1
				xx = -wprobNodes[j]
			}
			ac := a + b*xx
			qexpo := ac * ac
			if qexpo > c3 {
				break
			}
			rinsum := distuv.UnitNormal.CDF(ac) - distuv.UnitNormal.CDF(ac-w)
			if rinsum >= math.Exp(c1/k1) {
				elsum += wprobWeights[j] * math.Exp(-0.5*qexpo) * math.Pow(rinsum, k1)
			}
		}
		elsum *= 2 * b * k / math.Sqrt(2*math.Pi)
		einsum += elsum
		blb = bub
		bub += binc
	}
	pr += einsum
	if pr <= math.Exp(c1) {
		return 0
	}
	return math.Min(pr, 1)
}

// PTukey is the CDF of the studentized range distribution for k groups and
// df degrees of freedom.
func PTukey(q, k, df float64) float64 {
	const (
		eps1  = -30.0
		eps2  = 1.0e-14
		dhaf  = 100.0
		dquar = 800.0
		deigh = 5000.0
		dlarg = 25000.0
	)
	if math.IsNaN(q) || k < 2 || df < 2 {
		return math.NaN()
	}
	if q <= 0 {
		return 0
	}
	if math.IsInf(q, 1) {
		return 1
	}
	if df > dlarg {
		return wprob(q, k)
	}

	f2 := df * 0.5
	lg, _ := math.Lgamma(f2)
	f2lf := f2*math.Log(df) - df*math.Ln2 - lg
	f21 := f2 - 1
	ff4 := df * 0.25
	ulen := 0.125
	switch {
	case df <= dhaf:
		ulen = 1
	case df <= dquar:
		ulen = 0.5
	case df <= deigh:
		ulen = 0.25
	}
	f2lf += math.Log(ulen)

	half := len(ptukeyNodes)
	var ans float64
	for i := 1; i <= 50; i++ {
		var otsum float64
		twa1 := float64(2*i-1) * ulen
		for jj := 1; jj <= 2*half; jj++ {
			var j int
			var t1, u float64
			if half < jj {
				j = jj - half - 1
				u = twa1 + ptukeyNodes[j]*ulen
				t1 = f2lf + f21*math.Log(u) - u*ff4
			} else {
				j = jj - 1
				u = twa1 - ptukeyNodes[j]*ulen
				t1 = f2lf + f21*math.Log(u) - u*ff4
			}
			if t1 >= eps1 {
				qsqz := q * math.Sqrt(u*0.5)
				otsum += wprob(qsqz, k) * ptukeyWeights[j] * math.Exp(t1)
			}
		}
		if float64(i)*ulen >= 1 && otsum <= eps2 {
			break
		}
		ans += otsum
	}
	return math.Min(ans, 1)
}

// QTukey inverts PTukey by bisection.
func QTukey(p, k, df float64) float64 {
	if math.IsNaN(p) || p < 0 || p > 1 || k < 2 || df < 2 {
		return math.NaN()
	}
	if p == 0 {
		return 0
	}
	if p == 1 {
		return math.Inf(1)
	}
	lo, hi := 0.0, 1.0
	for PTukey(hi, k, df) < p {
		lo = hi
		hi *= 2
		if hi > 1e6 {
			return math.Inf(1)
		}
	}
	for i := 0; i < 200 && hi-lo > 1e-10; i++ {
		mid := 0.5 * (lo + hi)
		if PTukey(mid, k, df) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// TukeyHSD compares every pair of groups with Tukey's honestly significant
// difference test. Groups are ordered by name; MeanDiff is mean(B) - mean(A)
// and the interval is the family-wise (1-alpha) confidence interval.
func TukeyHSD(samples []Sample, alpha float64) ([]Comparison, error) {
	groups := clean(samples)
	k := len(groups)
	if k < 2 {
		return nil, ErrTooFewGroups
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	mse, df := withinMSE(groups)
	if df < 2 {
		return nil, fmt.Errorf("tukey hsd needs at least two residual degrees of freedom: %w", ErrTooFewValues)
	}
	if mse == 0 {
		return nil, fmt.Errorf("tukey hsd: %w", ErrConstantInput)
	}
	crit := QTukey(1-alpha, float64(k), df)

	means := make([]float64, k)
	for i, g := range groups {
		means[i] = stat.Mean(g.Values, nil)
	}
	var out []Comparison
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			ni, nj := float64(len(groups[i].Values)), float64(len(groups[j].Values))
			se := math.Sqrt(mse / 2 * (1/ni + 1/nj))
			diff := means[j] - means[i]
			q := math.Abs(diff) / se
			p := clamp01(1 - PTukey(q, float64(k), df))
			out = append(out, Comparison{
				A:         groups[i].Name,
				B:         groups[j].Name,
				MeanDiff:  diff,
				Statistic: q,
				P:         p,
				Lower:     diff - crit*se,
				Upper:     diff + crit*se,
				Reject:    p < alpha,
			})
		}
	}
	return out, nil
}
