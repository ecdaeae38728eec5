// Package screen runs the pairwise cointegration pass over a price table
// and keeps the pairs whose Engle-Granger p-value is below a threshold.
package screen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/stats"
)

// Options configures a screening pass.
type Options struct {
	// PValueThreshold is the exclusive acceptance bound.
	PValueThreshold float64 `json:"p_value_threshold" yaml:"p_value_threshold"`

	// Blacklist drops symbols containing any of its substrings before
	// pairs are enumerated.
	Blacklist market.Blacklist `json:"blacklist" yaml:"blacklist"`

	// Workers bounds the number of concurrent tests. 0 means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

func DefaultOptions() Options {
	return Options{
		PValueThreshold: 0.05,
		Blacklist:       append(market.Blacklist(nil), market.DefaultBlacklist...),
	}
}

func (o Options) Validate() error {
	if !(o.PValueThreshold > 0 && o.PValueThreshold < 1) {
		return fmt.Errorf("screen: p_value_threshold must be in (0,1) (got %v)", o.PValueThreshold)
	}
	if o.Workers < 0 {
		return fmt.Errorf("screen: workers must not be negative (got %d)", o.Workers)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Result is the cointegration outcome of one pair.
type Result struct {
	Pair       market.Pair        `json:"pair"`
	Statistic  float64            `json:"statistic"`
	PValue     float64            `json:"p_value"`
	UsedLag    int                `json:"used_lag"`
	NObs       int                `json:"nobs"`
	Critical   map[string]float64 `json:"critical"`
	HedgeRatio float64            `json:"hedge_ratio"`
	Accepted   bool               `json:"accepted"`
}

// Diagnostic records a pair the test could not be computed for.
type Diagnostic struct {
	Pair market.Pair
	Err  error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %v", d.Pair, d.Err)
}

// Report is the outcome of a screening pass. Results and Diagnostics are in
// pair enumeration order.
type Report struct {
	Symbols     []string
	Excluded    []string
	Results     []Result
	Diagnostics []Diagnostic
	Elapsed     time.Duration
}

// Accepted returns the accepted pairs in enumeration order.
func (r Report) Accepted() []market.Pair {
	var out []market.Pair
	for _, res := range r.Results {
		if res.Accepted {
			out = append(out, res.Pair)
		}
	}
	return out
}

// Screener tests every unordered pair of a price table. The table is fixed
// at construction and shared read-only by the workers.
type Screener struct {
	table *market.PriceTable
	opts  Options
	log   zerolog.Logger
}

type Option func(*Screener)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Screener) { s.log = l }
}

func New(table *market.PriceTable, opts Options, options ...Option) (*Screener, error) {
	if table == nil {
		return nil, errors.New("screen: price table is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Screener{table: table, opts: opts, log: zerolog.Nop()}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Pairs enumerates the candidate pairs: symbols that survive the blacklist
// and are fully aligned, taken i<j in column order.
func (s *Screener) Pairs() []market.Pair {
	return enumerate(s.candidates().Columns())
}

func (s *Screener) candidates() *market.PriceTable {
	return s.table.Exclude(s.opts.Blacklist).Aligned()
}

func enumerate(symbols []string) []market.Pair {
	if len(symbols) < 2 {
		return nil
	}
	out := make([]market.Pair, 0, len(symbols)*(len(symbols)-1)/2)
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			out = append(out, market.Pair{A: symbols[i], B: symbols[j]})
		}
	}
	return out
}

type outcome struct {
	res Result
	err error
}

// Screen runs the pass. Pairs whose test fails are reported as diagnostics
// and never fail the pass; only context cancellation does.
func (s *Screener) Screen(ctx context.Context) (Report, error) {
	start := time.Now()
	table := s.candidates()
	pairs := enumerate(table.Columns())

	rep := Report{Symbols: table.Columns()}
	for _, sym := range s.table.Columns() {
		if !table.Has(sym) {
			rep.Excluded = append(rep.Excluded, sym)
		}
	}

	s.log.Info().
		Int("symbols", len(rep.Symbols)).
		Int("excluded", len(rep.Excluded)).
		Int("pairs", len(pairs)).
		Int("workers", s.opts.workers()).
		Msg("screening pairs")

	outcomes := make([]outcome, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.workers())
	for i, p := range pairs {
		i, p := i, p // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.test(table, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("screen: %w", err)
	}

	for i, o := range outcomes {
		if o.err != nil {
			d := Diagnostic{Pair: pairs[i], Err: o.err}
			rep.Diagnostics = append(rep.Diagnostics, d)
			s.log.Warn().Str("pair", d.Pair.String()).Err(d.Err).Msg("pair skipped")
			continue
		}
		rep.Results = append(rep.Results, o.res)
		if o.res.Accepted {
			s.log.Debug().
				Str("pair", o.res.Pair.String()).
				Float64("p_value", o.res.PValue).
				Float64("statistic", o.res.Statistic).
				Msg("pair accepted")
		}
	}
	rep.Elapsed = time.Since(start)

	s.log.Info().
		Int("tested", len(rep.Results)).
		Int("accepted", len(rep.Accepted())).
		Int("skipped", len(rep.Diagnostics)).
		Dur("elapsed", rep.Elapsed).
		Msg("screening done")
	return rep, nil
}

func (s *Screener) test(table *market.PriceTable, p market.Pair) outcome {
	a, b, err := table.Pair(p)
	if err != nil {
		return outcome{err: err}
	}
	c, err := stats.Coint(a, b)
	if err != nil {
		return outcome{err: err}
	}
	if math.IsNaN(c.PValue) || math.IsNaN(c.Statistic) {
		return outcome{err: fmt.Errorf("%w: undefined test statistic", stats.ErrDegenerate)}
	}
	return outcome{res: Result{
		Pair:       p,
		Statistic:  c.Statistic,
		PValue:     c.PValue,
		UsedLag:    c.UsedLag,
		NObs:       c.NObs,
		Critical:   c.Critical,
		HedgeRatio: c.HedgeRatio,
		Accepted:   c.PValue < s.opts.PValueThreshold,
	}}
}
