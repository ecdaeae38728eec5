package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// collinearR2 is the R-squared above which the cointegrating regression is
// treated as an exact linear relation.
var collinearR2 = 1 - 100*math.Sqrt(2.220446049250313e-16)

// CointResult is an Engle-Granger two step cointegration test outcome.
type CointResult struct {
	Statistic float64
	PValue    float64
	UsedLag   int
	NObs      int
	Critical  map[string]float64

	// HedgeRatio is the slope of the cointegrating regression y0 ~ y1.
	HedgeRatio float64

	// Collinear is set when y0 is an exact linear function of y1. The
	// statistic is then -Inf and the p-value 0.
	Collinear bool
}

// Coint tests y0 and y1 for cointegration. y0 is regressed on y1 with a
// constant and the residuals are tested for a unit root with ADF (no
// deterministic terms, AIC lag selection). The p-value uses the two series
// MacKinnon surface.
func Coint(y0, y1 []float64) (CointResult, error) {
	if len(y0) != len(y1) {
		return CointResult{}, fmt.Errorf("stats: coint: length mismatch %d != %d", len(y0), len(y1))
	}
	if len(y0) < 3 {
		return CointResult{}, fmt.Errorf("stats: coint: %w", ErrInsufficientData)
	}

	for i, y := range [][]float64{y0, y1} {
		if stat.Variance(y, nil) < stdEpsilon*stdEpsilon {
			return CointResult{}, fmt.Errorf("stats: coint: %w: series %d is constant", ErrDegenerate, i)
		}
	}

	reg, err := OLS(y0, y1, ones(len(y1)))
	if err != nil {
		return CointResult{}, fmt.Errorf("stats: coint: %w", err)
	}

	out := CointResult{HedgeRatio: reg.Params[0]}
	if out.Critical, err = CriticalValues(TrendConstant, 2, len(y0)-1); err != nil {
		return CointResult{}, err
	}

	if reg.RSquared >= collinearR2 {
		out.Statistic = math.Inf(-1)
		out.PValue = 0
		out.Collinear = true
		out.NObs = len(y0)
		return out, nil
	}

	adf, err := ADF(reg.Residuals, AutoLag, TrendNone)
	if err != nil {
		return CointResult{}, fmt.Errorf("stats: coint: %w", err)
	}
	out.Statistic = adf.Statistic
	out.UsedLag = adf.UsedLag
	out.NObs = adf.NObs
	if out.PValue, err = MacKinnonP(adf.Statistic, TrendConstant, 2); err != nil {
		return CointResult{}, err
	}
	return out, nil
}
