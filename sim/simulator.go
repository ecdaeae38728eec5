// Package sim simulates the mean reversion strategy on a pair's z-score.
//
// The strategy is a three state machine (flat, short-spread, long-spread).
// Each step k in 1..N-1 looks at z[k-1] and z[k] and runs two transition
// families in a fixed order:
//
//	exit:  non-flat -> flat when z crosses the exit level, or k is the
//	       last index
//	entry: any state -> short-spread when z crosses down through -entry,
//	       any state -> long-spread when z crosses up through +entry
//
// The families are independent: a step that closes a position (or finds the
// book already flat) still evaluates the entry rules, so a position can be
// closed and reopened on the same index.
package sim

import (
	"fmt"
	"math"

	"github.com/rustyeddy/pairtrader/market"
)

// Options holds the strategy thresholds.
type Options struct {
	EntryZ float64 `json:"entry_z" yaml:"entry_z"`
	ExitZ  float64 `json:"exit_z" yaml:"exit_z"`

	// Scale multiplies the summed returns; 100 reports percent.
	Scale float64 `json:"scale" yaml:"scale"`
}

func DefaultOptions() Options {
	return Options{EntryZ: 3, ExitZ: 0, Scale: 100}
}

func (o Options) Validate() error {
	if !(o.EntryZ > 0) || math.IsInf(o.EntryZ, 0) {
		return fmt.Errorf("sim: entry_z must be positive (got %v)", o.EntryZ)
	}
	if math.IsNaN(o.ExitZ) || math.Abs(o.ExitZ) >= o.EntryZ {
		return fmt.Errorf("sim: exit_z must lie strictly inside (-entry_z, entry_z) (got %v)", o.ExitZ)
	}
	if o.Scale == 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) {
		return fmt.Errorf("sim: scale must be finite and non-zero (got %v)", o.Scale)
	}
	return nil
}

// Simulator runs the strategy. It holds no per-pair state and is safe for
// concurrent use.
type Simulator struct {
	opts Options
}

func New(opts Options) (*Simulator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{opts: opts}, nil
}

func (s *Simulator) Options() Options {
	return s.opts
}

// step is the input of one transition evaluation.
type step struct {
	k          int
	prev, cur  float64
	last       bool
	priceA     float64
	priceB     float64
	crossedOut bool
}

type transition struct {
	name  string
	guard func(o Options, p *Position, st step) bool
	apply func(o Options, p *Position, st step) *Trade
}

var transitions = [...]transition{
	{
		name: "exit",
		guard: func(o Options, p *Position, st step) bool {
			return p.State != Flat && (st.crossedOut || st.last)
		},
		apply: func(o Options, p *Position, st step) *Trade {
			tr := p.close(st.k, st.priceA, st.priceB, !st.crossedOut)
			return &tr
		},
	},
	{
		name: "enter-short",
		guard: func(o Options, p *Position, st step) bool {
			return p.State != ShortSpread && crossedDown(st.prev, st.cur, -o.EntryZ)
		},
		apply: func(o Options, p *Position, st step) *Trade {
			p.fill(ShortSpread, -o.EntryZ, st.k, st.priceA, st.priceB)
			return nil
		},
	},
	{
		name: "enter-long",
		guard: func(o Options, p *Position, st step) bool {
			return p.State != LongSpread && crossedUp(st.prev, st.cur, o.EntryZ)
		},
		apply: func(o Options, p *Position, st step) *Trade {
			p.fill(LongSpread, o.EntryZ, st.k, st.priceA, st.priceB)
			return nil
		},
	},
}

// Run simulates one pair. a and b are the legs' prices and z the spread
// z-score, all index aligned.
func (s *Simulator) Run(a, b market.PriceSeries, z []float64) (Result, error) {
	if len(a) != len(b) || len(a) != len(z) {
		return Result{}, fmt.Errorf("sim: %w: prices %d/%d, zscore %d", market.ErrMisaligned, len(a), len(b), len(z))
	}

	var (
		pos Position
		res Result
	)
	n := len(z)
	for k := 1; k < n; k++ {
		st := step{
			k:          k,
			prev:       z[k-1],
			cur:        z[k],
			last:       k == n-1,
			priceA:     a[k],
			priceB:     b[k],
			crossedOut: crossed(z[k-1], z[k], s.opts.ExitZ),
		}
		for _, t := range transitions {
			if !t.guard(s.opts, &pos, st) {
				continue
			}
			if tr := t.apply(s.opts, &pos, st); tr != nil {
				res.Trades = append(res.Trades, *tr)
			}
		}
		res.Steps++
	}

	res.PnL = pos.PnL * s.opts.Scale
	res.Open = pos.State
	return res, nil
}

func crossedDown(prev, cur, level float64) bool {
	return prev >= level && level >= cur
}

func crossedUp(prev, cur, level float64) bool {
	return prev <= level && level <= cur
}

func crossed(prev, cur, level float64) bool {
	return crossedDown(prev, cur, level) || crossedUp(prev, cur, level)
}
