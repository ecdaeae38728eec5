// journal/journal.go
package journal

import (
	"time"

	"github.com/rustyeddy/pairtrader/market"
)

// Quote is one symbol's price inside a snapshot.
type Quote struct {
	Symbol string
	Price  float64
}

// ResultRecord is one pair's backtest outcome.
type ResultRecord struct {
	Pair   market.Pair
	PnL    float64
	Trades int
	Wins   int
	Losses int
}

// ScreenRecord is one pair's cointegration outcome.
type ScreenRecord struct {
	Pair      market.Pair
	Statistic float64
	PValue    float64
	UsedLag   int
	Accepted  bool
}

// Run is a recorded pipeline run.
type Run struct {
	RunID   string
	Created time.Time
	Dataset string

	// Params is marshalled to YAML on write. On read ParamsYAML holds the
	// stored text.
	Params     any
	ParamsYAML string

	Failed   int
	TotalPnL float64

	Results []ResultRecord
	Screen  []ScreenRecord
}

// Sink receives results as they are produced.
type Sink interface {
	RecordResult(ResultRecord) error
	RecordPair(ScreenRecord) error
	Close() error
}
