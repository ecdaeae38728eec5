// Package stats provides the regression and time series tests used for pair
// selection and spread construction.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDegenerate marks input the estimators cannot work with: constant
	// series, singular design matrices, non-finite values.
	ErrDegenerate = errors.New("degenerate input")

	// ErrInsufficientData means there are fewer observations than the
	// estimator needs.
	ErrInsufficientData = errors.New("insufficient data")
)

// stdEpsilon is the smallest standard deviation treated as non-zero.
const stdEpsilon = 1e-10

// OLSResult holds an ordinary least squares fit.
type OLSResult struct {
	Params    []float64
	StdErr    []float64
	TValues   []float64
	Residuals []float64
	SSR       float64
	NObs      int

	// RSquared is centered: 1 - SSR/TSS around the mean of y.
	RSquared float64
}

// LogLikelihood is the gaussian log likelihood of the fit.
func (r OLSResult) LogLikelihood() float64 {
	n := float64(r.NObs)
	return -n / 2 * (math.Log(2*math.Pi) + math.Log(r.SSR/n) + 1)
}

// AIC is -2*llf + 2*k with k the number of regressors.
func (r OLSResult) AIC() float64 {
	return -2*r.LogLikelihood() + 2*float64(len(r.Params))
}

// OLS regresses y on the given regressor columns. No intercept is added;
// pass a column of ones for one.
func OLS(y []float64, cols ...[]float64) (OLSResult, error) {
	n := len(y)
	k := len(cols)
	if k == 0 {
		return OLSResult{}, fmt.Errorf("stats: ols: no regressors")
	}
	if n <= k {
		return OLSResult{}, fmt.Errorf("stats: ols: %w: %d observations for %d regressors", ErrInsufficientData, n, k)
	}

	x := mat.NewDense(n, k, nil)
	for j, c := range cols {
		if len(c) != n {
			return OLSResult{}, fmt.Errorf("stats: ols: regressor %d has %d rows, want %d", j, len(c), n)
		}
		for i, v := range c {
			if !finite(v) {
				return OLSResult{}, fmt.Errorf("stats: ols: %w: non-finite regressor", ErrDegenerate)
			}
			x.Set(i, j, v)
		}
	}
	for _, v := range y {
		if !finite(v) {
			return OLSResult{}, fmt.Errorf("stats: ols: %w: non-finite response", ErrDegenerate)
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yv); err != nil {
		return OLSResult{}, fmt.Errorf("stats: ols: %w: %v", ErrDegenerate, err)
	}

	// (XᵀX)⁻¹ = R⁻¹R⁻ᵀ, so the coefficient variances are the squared row
	// norms of R⁻¹.
	var full mat.Dense
	qr.RTo(&full)
	r := mat.NewTriDense(k, mat.Upper, nil)
	r.Copy(full.Slice(0, k, 0, k))
	var rinv mat.TriDense
	if err := rinv.InverseTri(r); err != nil {
		return OLSResult{}, fmt.Errorf("stats: ols: %w: %v", ErrDegenerate, err)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	res := OLSResult{
		Params:    make([]float64, k),
		StdErr:    make([]float64, k),
		TValues:   make([]float64, k),
		Residuals: make([]float64, n),
		NObs:      n,
	}
	for i := 0; i < n; i++ {
		e := y[i] - fitted.AtVec(i)
		res.Residuals[i] = e
		res.SSR += e * e
	}

	sigma2 := res.SSR / float64(n-k)
	for j := 0; j < k; j++ {
		res.Params[j] = beta.AtVec(j)
		if !finite(res.Params[j]) {
			return OLSResult{}, fmt.Errorf("stats: ols: %w: non-finite coefficient", ErrDegenerate)
		}
		var vjj float64
		for l := j; l < k; l++ {
			vjj += rinv.At(j, l) * rinv.At(j, l)
		}
		res.StdErr[j] = math.Sqrt(sigma2 * vjj)
		if res.StdErr[j] > 0 {
			res.TValues[j] = res.Params[j] / res.StdErr[j]
		}
	}

	mean := stat.Mean(y, nil)
	var tss float64
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}
	if tss > 0 {
		res.RSquared = 1 - res.SSR/tss
	}
	return res, nil
}

// LinearRegression fits y = alpha + beta*x. Constant x has no defined slope
// and returns ErrDegenerate.
func LinearRegression(x, y []float64) (alpha, beta float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("stats: regression: length mismatch %d != %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("stats: regression: %w", ErrInsufficientData)
	}
	if stat.Variance(x, nil) < stdEpsilon*stdEpsilon {
		return 0, 0, fmt.Errorf("stats: regression: %w: constant regressor", ErrDegenerate)
	}
	alpha, beta = stat.LinearRegression(x, y, nil, false)
	if !finite(alpha) || !finite(beta) {
		return 0, 0, fmt.Errorf("stats: regression: %w", ErrDegenerate)
	}
	return alpha, beta, nil
}

// ZScore is (value-mean)/std, or 0 when std is (numerically) zero.
func ZScore(value, mean, std float64) float64 {
	if !finite(std) || std < stdEpsilon {
		return 0
	}
	z := (value - mean) / std
	if !finite(z) {
		return 0
	}
	return z
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
