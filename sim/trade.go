package sim

// Trade is one closed round trip of a pair position.
type Trade struct {
	Side       State
	OpenIndex  int
	CloseIndex int
	Fills      int

	EntryA float64
	EntryB float64
	ExitA  float64
	ExitB  float64

	// Return is the unscaled spread return of the round trip.
	Return float64

	// Forced is set when the trade was closed by the end of the data rather
	// than a signal.
	Forced bool
}

// Result is the outcome of simulating one pair.
type Result struct {
	// PnL is the cumulative return of all round trips, scaled (x100 by
	// default, i.e. percent).
	PnL    float64
	Trades []Trade
	Steps  int

	// Open is the state left after the last step. It is non-flat only when
	// an entry fired on the final index, after the forced close.
	Open State
}

func (r Result) Wins() int {
	n := 0
	for _, t := range r.Trades {
		if t.Return > 0 {
			n++
		}
	}
	return n
}

func (r Result) Losses() int {
	n := 0
	for _, t := range r.Trades {
		if t.Return < 0 {
			n++
		}
	}
	return n
}
