package stats

import (
	"fmt"
	"math"
)

// AutoLag asks ADF to choose the lag order by AIC.
const AutoLag = -1

// ADFResult is the outcome of an augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic float64
	PValue    float64
	UsedLag   int
	NObs      int
	Critical  map[string]float64
}

// ADF runs the augmented Dickey-Fuller unit root test on x:
//
//	dx[t] = rho*x[t-1] + sum_i gamma_i*dx[t-i] (+ const) + e[t]
//
// With maxLag == AutoLag the upper bound is 12*(T/100)^(1/4) and the lag
// order with the lowest AIC is used; otherwise maxLag lags are used as is.
func ADF(x []float64, maxLag int, trend Trend) (ADFResult, error) {
	nt := 0
	switch trend {
	case TrendNone:
	case TrendConstant:
		nt = 1
	default:
		return ADFResult{}, fmt.Errorf("stats: adf: unknown trend %q", trend)
	}

	nobs := len(x)
	auto := maxLag < 0
	if auto {
		maxLag = int(math.Ceil(12 * math.Pow(float64(nobs)/100, 0.25)))
		if limit := nobs/2 - nt - 1; limit < maxLag {
			maxLag = limit
		}
		if maxLag < 0 {
			return ADFResult{}, fmt.Errorf("stats: adf: %w: sample of %d is too short", ErrInsufficientData, nobs)
		}
	}
	if nobs-1-maxLag <= maxLag+1+nt {
		return ADFResult{}, fmt.Errorf("stats: adf: %w: %d observations for %d lags", ErrInsufficientData, nobs, maxLag)
	}

	dx := make([]float64, nobs-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	usedLag := maxLag
	if auto {
		// Every candidate is fit on the sample of the longest lag so the AIC
		// values are comparable.
		y, cols := adfDesign(x, dx, maxLag, maxLag, nt)
		best := math.Inf(1)
		for lag := 0; lag <= maxLag; lag++ {
			regs := append(append([][]float64{}, cols[:1+lag]...), cols[1+maxLag:]...)
			res, err := OLS(y, regs...)
			if err != nil {
				return ADFResult{}, fmt.Errorf("stats: adf: lag %d: %w", lag, err)
			}
			if aic := res.AIC(); aic < best {
				best = aic
				usedLag = lag
			}
		}
	}

	y, cols := adfDesign(x, dx, usedLag, usedLag, nt)
	res, err := OLS(y, cols...)
	if err != nil {
		return ADFResult{}, fmt.Errorf("stats: adf: %w", err)
	}
	if res.StdErr[0] == 0 {
		return ADFResult{}, fmt.Errorf("stats: adf: %w: perfect fit", ErrDegenerate)
	}

	out := ADFResult{
		Statistic: res.TValues[0],
		UsedLag:   usedLag,
		NObs:      res.NObs,
	}
	if out.PValue, err = MacKinnonP(out.Statistic, trend, 1); err != nil {
		return ADFResult{}, err
	}
	if out.Critical, err = CriticalValues(trend, 1, out.NObs); err != nil {
		return ADFResult{}, err
	}
	return out, nil
}

// adfDesign builds the response and the regressor columns
// [x[t-1], dx[t-1..t-lags], const?] over the rows left after trimming trim
// leading differences.
func adfDesign(x, dx []float64, lags, trim, nt int) ([]float64, [][]float64) {
	rows := len(dx) - trim
	y := make([]float64, rows)
	cols := make([][]float64, 1+lags+nt)
	for j := range cols {
		cols[j] = make([]float64, rows)
	}

	for r := 0; r < rows; r++ {
		t := trim + r
		y[r] = dx[t]
		cols[0][r] = x[t]
		for i := 1; i <= lags; i++ {
			cols[i][r] = dx[t-i]
		}
	}
	if nt == 1 {
		cols[1+lags] = ones(rows)
	}
	return y, cols
}
