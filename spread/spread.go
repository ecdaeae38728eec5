// Package spread turns a pair of aligned price series into a hedged spread
// and its rolling z-score.
package spread

import (
	"fmt"
	"math"

	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/stats"
)

// Options configures the estimator.
type Options struct {
	// ShortWindow is the moving average compared against the long one.
	// 1 means the instantaneous spread.
	ShortWindow int `json:"short_window" yaml:"short_window"`

	// LongWindow sizes the rolling regression, the long moving average and
	// the rolling standard deviation.
	LongWindow int `json:"long_window" yaml:"long_window"`
}

func DefaultOptions() Options {
	return Options{ShortWindow: 1, LongWindow: 50}
}

func (o Options) Validate() error {
	if o.ShortWindow <= 0 {
		return fmt.Errorf("spread: short_window must be positive (got %d)", o.ShortWindow)
	}
	if o.LongWindow < 2 {
		return fmt.Errorf("spread: long_window must be at least 2 (got %d)", o.LongWindow)
	}
	if o.ShortWindow > o.LongWindow {
		return fmt.Errorf("spread: short_window %d exceeds long_window %d", o.ShortWindow, o.LongWindow)
	}
	return nil
}

// Series is the spread of one pair, index aligned with its prices. Indices
// where the hedge ratio is undefined hold NaN in HedgeRatio and 0 in Spread.
// ZScore is 0 until the rolling windows hold only defined spreads, which
// first happens at index 2*LongWindow-2.
type Series struct {
	Pair       market.Pair
	HedgeRatio []float64
	Spread     []float64
	ZScore     []float64
}

func (s Series) Len() int {
	return len(s.ZScore)
}

// Estimate computes the spread of p from its two legs. a is the regressor
// (instrument 1) and b the regressand (instrument 2):
//
//	b(k)      = slope of b ~ a + const over the long window ending at k
//	spread(k) = b[k] - b(k)*a[k]
//	z(k)      = (mean_short(spread) - mean_long(spread)) / std_long(spread)
//
// Estimate is a pure function of its inputs.
func Estimate(p market.Pair, a, b market.PriceSeries, opts Options) (Series, error) {
	if err := opts.Validate(); err != nil {
		return Series{}, err
	}
	if len(a) != len(b) {
		return Series{}, fmt.Errorf("spread: %s: %w: %d vs %d observations", p, market.ErrMisaligned, len(a), len(b))
	}

	n := len(a)
	_, hedge := stats.RollingRegression(a, b, opts.LongWindow)

	raw := make([]float64, n)
	out := Series{
		Pair:       p,
		HedgeRatio: hedge,
		Spread:     make([]float64, n),
		ZScore:     make([]float64, n),
	}
	for k := 0; k < n; k++ {
		if math.IsNaN(hedge[k]) {
			raw[k] = math.NaN()
			continue
		}
		raw[k] = b[k] - hedge[k]*a[k]
		out.Spread[k] = raw[k]
	}

	// the windows see undefined spreads as undefined, not as the 0 stored
	// in Spread.
	short := stats.RollingMean(raw, opts.ShortWindow)
	long := stats.RollingMean(raw, opts.LongWindow)
	std := stats.RollingStdDev(raw, opts.LongWindow)

	for k := 0; k < n; k++ {
		if math.IsNaN(short[k]) || math.IsNaN(long[k]) || math.IsNaN(std[k]) {
			continue
		}
		out.ZScore[k] = stats.ZScore(short[k], long[k], std[k])
	}
	return out, nil
}
