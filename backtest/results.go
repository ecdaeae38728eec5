package backtest

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/sim"
)

// PairResult is the outcome of one pair.
type PairResult struct {
	Pair   market.Pair
	PnL    float64 // scaled cumulative return
	Trades int
	Wins   int
	Losses int

	// Open is non-flat when a position was opened on the final index.
	Open sim.State

	Detail sim.Result
}

// Failure is a pair that could not be evaluated.
type Failure struct {
	Pair market.Pair
	Err  error
}

// Report collects the results of a run in input order.
type Report struct {
	Results  []PairResult
	Failures []Failure
	Elapsed  time.Duration
}

// PnL returns the pair to PnL mapping.
func (r *Report) PnL() map[market.Pair]float64 {
	out := make(map[market.Pair]float64, len(r.Results))
	for _, res := range r.Results {
		out[res.Pair] = res.PnL
	}
	return out
}

func (r *Report) Get(p market.Pair) (PairResult, bool) {
	for _, res := range r.Results {
		if res.Pair == p {
			return res, true
		}
	}
	return PairResult{}, false
}

func (r *Report) Total() float64 {
	var sum float64
	for _, res := range r.Results {
		sum += res.PnL
	}
	return sum
}

// Ranked returns the results ordered by PnL, best first. Ties keep input
// order.
func (r *Report) Ranked() []PairResult {
	out := append([]PairResult(nil), r.Results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PnL > out[j].PnL })
	return out
}

// PrintReport writes a console summary. top limits the ranked pair list;
// 0 prints every pair.
func PrintReport(w io.Writer, r *Report, top int) {
	var trades, wins, losses, profitable int
	for _, res := range r.Results {
		trades += res.Trades
		wins += res.Wins
		losses += res.Losses
		if res.PnL > 0 {
			profitable++
		}
	}

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Pairs Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Pairs:         %d\n", len(r.Results)+len(r.Failures))
	fmt.Fprintf(w, "Evaluated:     %d\n", len(r.Results))
	fmt.Fprintf(w, "Failed:        %d\n", len(r.Failures))
	fmt.Fprintf(w, "Elapsed:       %s\n", r.Elapsed.Round(time.Millisecond))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", trades)
	fmt.Fprintf(w, "Wins:          %d\n", wins)
	fmt.Fprintf(w, "Losses:        %d\n", losses)
	if trades > 0 {
		fmt.Fprintf(w, "Win Rate:      %.2f%%\n", float64(wins)/float64(trades)*100)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total PnL:     %.4f\n", r.Total())
	fmt.Fprintf(w, "Profitable:    %d\n", profitable)
	if n := len(r.Results); n > 0 {
		fmt.Fprintf(w, "Mean PnL:      %.4f\n", r.Total()/float64(n))
	}

	ranked := r.Ranked()
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}
	if len(ranked) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Pairs")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, res := range ranked {
			fmt.Fprintf(w, "%-24s %10.4f  (%d trades)\n", res.Pair, res.PnL, res.Trades)
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "- %s: %v\n", f.Pair, f.Err)
		}
	}

	fmt.Fprintln(w)
}
