package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Rolling functions return a slice aligned with the input. Index k is
// computed from the trailing window ending at k; indices before the first
// full window are NaN. A NaN inside a window makes that window NaN.

// RollingMean is the simple moving average over window observations.
func RollingMean(x []float64, window int) []float64 {
	out := nanSlice(len(x))
	if window <= 0 {
		return out
	}
	for k := window - 1; k < len(x); k++ {
		out[k] = stat.Mean(x[k-window+1:k+1], nil)
	}
	return out
}

// RollingStdDev is the sample (n-1) standard deviation over window
// observations. A window of one has no defined deviation.
func RollingStdDev(x []float64, window int) []float64 {
	out := nanSlice(len(x))
	if window < 2 {
		return out
	}
	for k := window - 1; k < len(x); k++ {
		w := x[k-window+1 : k+1]
		if hasNaN(w) {
			continue
		}
		out[k] = stat.StdDev(w, nil)
	}
	return out
}

// RollingRegression regresses y on x with an intercept over each trailing
// window. Windows where the slope is undefined are NaN in both outputs.
func RollingRegression(x, y []float64, window int) (alpha, beta []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	alpha = nanSlice(n)
	beta = nanSlice(n)
	if window < 2 {
		return alpha, beta
	}
	for k := window - 1; k < n; k++ {
		xs := x[k-window+1 : k+1]
		ys := y[k-window+1 : k+1]
		if hasNaN(xs) || hasNaN(ys) {
			continue
		}
		a, b, err := LinearRegression(xs, ys)
		if err != nil {
			continue
		}
		alpha[k], beta[k] = a, b
	}
	return alpha, beta
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
