package market

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrMisaligned    = errors.New("misaligned price series")
)

// PriceSeries is an ordered sequence of observations for one instrument.
// Index k means "observation k" for every series in the same table.
type PriceSeries []float64

// PriceTable is an immutable set of price series keyed by symbol. Column
// order is preserved because pair enumeration depends on it.
type PriceTable struct {
	columns []string
	series  map[string]PriceSeries
	length  int
}

// NewPriceTable builds a table from columns in order. The table length is
// the longest series; shorter series are kept but reported as misaligned.
func NewPriceTable(columns []string, series map[string]PriceSeries) (*PriceTable, error) {
	t := &PriceTable{
		columns: make([]string, 0, len(columns)),
		series:  make(map[string]PriceSeries, len(columns)),
	}

	for _, sym := range columns {
		if sym == "" {
			return nil, fmt.Errorf("market: empty symbol in column list")
		}
		if _, dup := t.series[sym]; dup {
			return nil, fmt.Errorf("market: duplicate symbol %q", sym)
		}
		s, ok := series[sym]
		if !ok {
			return nil, fmt.Errorf("market: %w: %q has no series", ErrUnknownSymbol, sym)
		}

		cp := make(PriceSeries, len(s))
		copy(cp, s)
		t.columns = append(t.columns, sym)
		t.series[sym] = cp
		if len(cp) > t.length {
			t.length = len(cp)
		}
	}
	return t, nil
}

// Columns returns the symbols in column order.
func (t *PriceTable) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len is the number of observations in the table.
func (t *PriceTable) Len() int {
	return t.length
}

func (t *PriceTable) Has(sym string) bool {
	_, ok := t.series[sym]
	return ok
}

// Series returns the series for sym. The returned slice must not be
// modified.
func (t *PriceTable) Series(sym string) (PriceSeries, error) {
	s, ok := t.series[sym]
	if !ok {
		return nil, fmt.Errorf("market: %w: %q", ErrUnknownSymbol, sym)
	}
	if !t.aligned(s) {
		return nil, fmt.Errorf("market: %w: %q has %d of %d observations", ErrMisaligned, sym, countFinite(s), t.length)
	}
	return s, nil
}

// Raw returns the column for sym without the alignment check.
func (t *PriceTable) Raw(sym string) (PriceSeries, bool) {
	s, ok := t.series[sym]
	return s, ok
}

// Pair returns both legs of p, in pair order.
func (t *PriceTable) Pair(p Pair) (PriceSeries, PriceSeries, error) {
	a, err := t.Series(p.A)
	if err != nil {
		return nil, nil, err
	}
	b, err := t.Series(p.B)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Misaligned lists the columns that are short or contain non-finite values.
func (t *PriceTable) Misaligned() []string {
	var out []string
	for _, sym := range t.columns {
		if !t.aligned(t.series[sym]) {
			out = append(out, sym)
		}
	}
	return out
}

// Aligned returns a table without the misaligned columns.
func (t *PriceTable) Aligned() *PriceTable {
	return t.filter(func(sym string) bool {
		return t.aligned(t.series[sym])
	})
}

// Exclude returns a table without the columns matched by bl.
func (t *PriceTable) Exclude(bl Blacklist) *PriceTable {
	return t.filter(func(sym string) bool {
		return !bl.Matches(sym)
	})
}

func (t *PriceTable) filter(keep func(string) bool) *PriceTable {
	out := &PriceTable{
		series: make(map[string]PriceSeries),
		length: t.length,
	}
	for _, sym := range t.columns {
		if !keep(sym) {
			continue
		}
		out.columns = append(out.columns, sym)
		out.series[sym] = t.series[sym]
	}
	return out
}

func (t *PriceTable) aligned(s PriceSeries) bool {
	if len(s) != t.length {
		return false
	}
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func countFinite(s PriceSeries) int {
	n := 0
	for _, v := range s {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n++
		}
	}
	return n
}
