package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Trend selects the deterministic terms of a unit root regression.
type Trend string

const (
	TrendNone     Trend = "n"
	TrendConstant Trend = "c"
)

// MacKinnon (1994, 2010) response surface coefficients, indexed by the
// number of integrated series N-1.
type surface struct {
	max, min, star float64
	small          [3]float64
	large          [4]float64
}

var (
	surfaceNone = []surface{
		{
			max: math.Inf(1), min: -19.04, star: -1.04,
			small: [3]float64{0.6344, 1.2378, 3.2496e-2},
			large: [4]float64{0.4797, 9.3557e-1, -0.6999e-1, 3.3066e-2},
		},
		{
			max: 1.51, min: -19.62, star: -1.53,
			small: [3]float64{1.9129, 1.3857, 3.5322e-2},
			large: [4]float64{1.5578, 8.558e-1, -2.083e-1, -3.3549e-2},
		},
	}
	surfaceConstant = []surface{
		{
			max: 2.74, min: -18.83, star: -1.61,
			small: [3]float64{2.1659, 1.4412, 3.8269e-2},
			large: [4]float64{1.7339, 9.3202e-1, -1.2745e-1, -1.0368e-2},
		},
		{
			max: 0.92, min: -18.86, star: -2.62,
			small: [3]float64{2.92, 1.5012, 3.9796e-2},
			large: [4]float64{2.1945, 6.4695e-1, -2.9198e-1, -4.2377e-2},
		},
	}
)

// Finite sample critical values: c0 + c1/T + c2/T^2 (+ c3/T^3), at 1%, 5%
// and 10%.
var critConstant = [][3][4]float64{
	{
		{-3.43035, -6.5393, -16.786, -79.433},
		{-2.86154, -2.8903, -4.234, -40.040},
		{-2.56677, -1.5384, -2.809, 0},
	},
	{
		{-3.89644, -10.9519, -22.527, 0},
		{-3.33613, -6.1101, -6.823, 0},
		{-3.04445, -4.2412, -2.720, 0},
	},
}

var critNone = [][3][4]float64{
	{
		{-2.56574, -2.2358, -3.627, 0},
		{-1.94100, -0.2686, -3.365, 31.223},
		{-1.61682, 0.2656, -2.714, 25.364},
	},
}

var unitNormal = distuv.Normal{Mu: 0, Sigma: 1}

// MacKinnonP returns the approximate asymptotic p-value of a unit root test
// statistic for n integrated series (1 for ADF, 2 for a two series
// cointegration test).
func MacKinnonP(teststat float64, trend Trend, n int) (float64, error) {
	s, err := lookupSurface(trend, n)
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(teststat):
		return 0, fmt.Errorf("stats: mackinnon: %w: NaN statistic", ErrDegenerate)
	case teststat > s.max:
		return 1, nil
	case teststat < s.min:
		return 0, nil
	}

	var v float64
	if teststat <= s.star {
		v = polyval(s.small[:], teststat)
	} else {
		v = polyval(s.large[:], teststat)
	}
	return unitNormal.CDF(v), nil
}

// CriticalValues maps "1%", "5%" and "10%" to the finite sample critical
// values for nobs observations.
func CriticalValues(trend Trend, n, nobs int) (map[string]float64, error) {
	var table [][3][4]float64
	switch trend {
	case TrendConstant:
		table = critConstant
	case TrendNone:
		table = critNone
	default:
		return nil, fmt.Errorf("stats: unknown trend %q", trend)
	}
	if n < 1 || n > len(table) {
		return nil, fmt.Errorf("stats: no critical values for trend %q with N=%d", trend, n)
	}
	if nobs <= 0 {
		return nil, fmt.Errorf("stats: critical values: %w", ErrInsufficientData)
	}

	t := float64(nobs)
	out := make(map[string]float64, 3)
	for i, level := range []string{"1%", "5%", "10%"} {
		c := table[n-1][i]
		out[level] = c[0] + c[1]/t + c[2]/(t*t) + c[3]/(t*t*t)
	}
	return out, nil
}

func lookupSurface(trend Trend, n int) (surface, error) {
	var table []surface
	switch trend {
	case TrendConstant:
		table = surfaceConstant
	case TrendNone:
		table = surfaceNone
	default:
		return surface{}, fmt.Errorf("stats: unknown trend %q", trend)
	}
	if n < 1 || n > len(table) {
		return surface{}, fmt.Errorf("stats: no p-value surface for trend %q with N=%d", trend, n)
	}
	return table[n-1], nil
}

// polyval evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
