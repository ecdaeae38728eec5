// Package backtest runs the spread estimator and the position simulator over
// a list of pairs and collects the per-pair PnL.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/sim"
	"github.com/rustyeddy/pairtrader/spread"
)

// ErrDataUnavailable marks a pair whose prices are missing or misaligned.
var ErrDataUnavailable = errors.New("data unavailable")

// Runner evaluates pairs against one price table. Pairs are independent and
// run on up to Workers goroutines; the table is shared read-only.
type Runner struct {
	Table    *market.PriceTable
	Spread   spread.Options
	Strategy sim.Options

	// Workers bounds concurrency. 0 means GOMAXPROCS.
	Workers int

	// Logger receives per-pair failures. Nil disables logging.
	Logger *zerolog.Logger
}

// NewRunner returns a runner with the default spread and strategy
// parameters.
func NewRunner(table *market.PriceTable) *Runner {
	return &Runner{
		Table:    table,
		Spread:   spread.DefaultOptions(),
		Strategy: sim.DefaultOptions(),
	}
}

func (r *Runner) validate() error {
	if r.Table == nil {
		return fmt.Errorf("backtest: Table is required")
	}
	if err := r.Spread.Validate(); err != nil {
		return err
	}
	if err := r.Strategy.Validate(); err != nil {
		return err
	}
	if r.Workers < 0 {
		return fmt.Errorf("backtest: workers must not be negative (got %d)", r.Workers)
	}
	return nil
}

func (r *Runner) logger() zerolog.Logger {
	if r.Logger == nil {
		return zerolog.Nop()
	}
	return *r.Logger
}

type evaluation struct {
	res PairResult
	err error
}

// Run evaluates every pair once. A pair that cannot be evaluated is recorded
// as a Failure and does not stop the batch; Run itself fails only on invalid
// parameters or context cancellation. Duplicate pairs (in either order) are
// evaluated once.
func (r *Runner) Run(ctx context.Context, pairs []market.Pair) (*Report, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	simulator, err := sim.New(r.Strategy)
	if err != nil {
		return nil, err
	}

	log := r.logger()
	start := time.Now()
	pairs = dedupe(pairs)

	workers := r.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log.Info().Int("pairs", len(pairs)).Int("workers", workers).Msg("backtest started")

	evals := make([]evaluation, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range pairs {
		i, p := i, p // per-iteration copies (go 1.21 loop semantics)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evals[i] = r.evaluate(simulator, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	rep := &Report{}
	for i, e := range evals {
		if e.err != nil {
			f := Failure{Pair: pairs[i], Err: e.err}
			rep.Failures = append(rep.Failures, f)
			log.Warn().Str("pair", f.Pair.String()).Err(f.Err).Msg("pair failed")
			continue
		}
		rep.Results = append(rep.Results, e.res)
	}
	rep.Elapsed = time.Since(start)

	log.Info().
		Int("evaluated", len(rep.Results)).
		Int("failed", len(rep.Failures)).
		Float64("total_pnl", rep.Total()).
		Dur("elapsed", rep.Elapsed).
		Msg("backtest done")
	return rep, nil
}

func (r *Runner) evaluate(s *sim.Simulator, p market.Pair) evaluation {
	a, b, err := r.Table.Pair(p)
	if err != nil {
		return evaluation{err: fmt.Errorf("%w: %w", ErrDataUnavailable, err)}
	}
	ser, err := spread.Estimate(p, a, b, r.Spread)
	if err != nil {
		return evaluation{err: err}
	}
	out, err := s.Run(a, b, ser.ZScore)
	if err != nil {
		return evaluation{err: err}
	}
	return evaluation{res: PairResult{
		Pair:   p,
		PnL:    out.PnL,
		Trades: len(out.Trades),
		Wins:   out.Wins(),
		Losses: out.Losses(),
		Open:   out.Open,
		Detail: out,
	}}
}

func dedupe(pairs []market.Pair) []market.Pair {
	seen := make(map[string]bool, len(pairs))
	out := make([]market.Pair, 0, len(pairs))
	for _, p := range pairs {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		out = append(out, p)
	}
	return out
}
