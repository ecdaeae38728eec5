package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *PriceTable {
	t.Helper()
	tbl, err := NewPriceTable(
		[]string{"BTCUSDT", "ETHUSDT", "BUSDUSDT", "GAPUSDT", "NEWUSDT"},
		map[string]PriceSeries{
			"BTCUSDT":  {1, 2, 3, 4},
			"ETHUSDT":  {10, 20, 30, 40},
			"BUSDUSDT": {1, 1, 1, 1},
			"GAPUSDT":  {5, math.NaN(), 7, 8},
			"NEWUSDT":  {9, 9},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestNewPriceTableErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		series  map[string]PriceSeries
		wantErr string
	}{
		{"empty symbol", []string{""}, map[string]PriceSeries{"": {1}}, "empty symbol"},
		{"duplicate", []string{"A", "A"}, map[string]PriceSeries{"A": {1}}, "duplicate symbol"},
		{"missing series", []string{"A", "B"}, map[string]PriceSeries{"A": {1}}, "has no series"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceTable(tt.columns, tt.series)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPriceTableCopiesInput(t *testing.T) {
	t.Parallel()

	in := PriceSeries{1, 2, 3}
	tbl, err := NewPriceTable([]string{"A"}, map[string]PriceSeries{"A": in})
	require.NoError(t, err)
	in[0] = 99

	s, err := tbl.Series("A")
	require.NoError(t, err)
	assert.Equal(t, 1.0, s[0])
}

func TestPriceTableSeries(t *testing.T) {
	t.Parallel()

	tbl := testTable(t)
	assert.Equal(t, 4, tbl.Len())
	assert.True(t, tbl.Has("GAPUSDT"))
	assert.False(t, tbl.Has("XRPUSDT"))

	s, err := tbl.Series("ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, PriceSeries{10, 20, 30, 40}, s)

	_, err = tbl.Series("XRPUSDT")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = tbl.Series("GAPUSDT")
	assert.ErrorIs(t, err, ErrMisaligned)
	_, err = tbl.Series("NEWUSDT")
	assert.ErrorIs(t, err, ErrMisaligned)

	raw, ok := tbl.Raw("NEWUSDT")
	assert.True(t, ok)
	assert.Len(t, raw, 2)
}

func TestPriceTablePair(t *testing.T) {
	t.Parallel()

	tbl := testTable(t)
	a, b, err := tbl.Pair(Pair{A: "BTCUSDT", B: "ETHUSDT"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, a[0])
	assert.Equal(t, 10.0, b[0])

	_, _, err = tbl.Pair(Pair{A: "BTCUSDT", B: "NEWUSDT"})
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestPriceTableFilters(t *testing.T) {
	t.Parallel()

	tbl := testTable(t)
	assert.Equal(t, []string{"GAPUSDT", "NEWUSDT"}, tbl.Misaligned())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "BUSDUSDT"}, tbl.Aligned().Columns())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "GAPUSDT", "NEWUSDT"}, tbl.Exclude(DefaultBlacklist).Columns())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, tbl.Exclude(DefaultBlacklist).Aligned().Columns())

	// filters leave the source alone.
	assert.Len(t, tbl.Columns(), 5)
}

func TestBlacklist(t *testing.T) {
	t.Parallel()

	bl := Blacklist{"BUSD", "FLM"}
	assert.True(t, bl.Matches("BUSDUSDT"))
	assert.True(t, bl.Matches("FLMUSDT"))
	assert.False(t, bl.Matches("BTCUSDT"))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, bl.Filter([]string{"BTCUSDT", "FLMUSDT", "ETHUSDT", "USDTBUSD"}))

	var empty Blacklist
	assert.False(t, empty.Matches("BUSDUSDT"))
}
