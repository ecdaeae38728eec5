package screen

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/stats"
)

func walk(rng *rand.Rand, n int, start float64) market.PriceSeries {
	out := make(market.PriceSeries, n)
	v := start
	for i := range out {
		v += rng.NormFloat64()
		out[i] = v
	}
	return out
}

func testTable(t *testing.T) *market.PriceTable {
	t.Helper()
	const n = 400
	rng := rand.New(rand.NewSource(7))

	btc := walk(rng, n, 1000)
	eth := make(market.PriceSeries, n)
	for i, v := range btc {
		eth[i] = 2*v + rng.NormFloat64()
	}
	flat := make(market.PriceSeries, n)
	for i := range flat {
		flat[i] = 1
	}

	tbl, err := market.NewPriceTable(
		[]string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "PEGUSDT", "BUSDUSDT", "NEWUSDT"},
		map[string]market.PriceSeries{
			"BTCUSDT":  btc,
			"ETHUSDT":  eth,
			"SOLUSDT":  walk(rng, n, 50),
			"PEGUSDT":  flat,
			"BUSDUSDT": walk(rng, n, 1),
			"NEWUSDT":  walk(rng, n/2, 10),
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"defaults", DefaultOptions(), ""},
		{"zero threshold", Options{PValueThreshold: 0}, "p_value_threshold must be in (0,1)"},
		{"threshold of one", Options{PValueThreshold: 1}, "p_value_threshold must be in (0,1)"},
		{"negative workers", Options{PValueThreshold: 0.05, Workers: -1}, "workers must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRequiresTable(t *testing.T) {
	t.Parallel()

	_, err := New(nil, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price table is required")
}

func TestPairsEnumeration(t *testing.T) {
	t.Parallel()

	s, err := New(testTable(t), DefaultOptions())
	require.NoError(t, err)

	// BUSDUSDT is blacklisted and NEWUSDT is short.
	assert.Equal(t, []market.Pair{
		{A: "BTCUSDT", B: "ETHUSDT"},
		{A: "BTCUSDT", B: "SOLUSDT"},
		{A: "BTCUSDT", B: "PEGUSDT"},
		{A: "ETHUSDT", B: "SOLUSDT"},
		{A: "ETHUSDT", B: "PEGUSDT"},
		{A: "SOLUSDT", B: "PEGUSDT"},
	}, s.Pairs())
}

func TestScreen(t *testing.T) {
	t.Parallel()

	s, err := New(testTable(t), DefaultOptions())
	require.NoError(t, err)

	rep, err := s.Screen(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "PEGUSDT"}, rep.Symbols)
	assert.Equal(t, []string{"BUSDUSDT", "NEWUSDT"}, rep.Excluded)

	assert.Contains(t, rep.Accepted(), market.Pair{A: "BTCUSDT", B: "ETHUSDT"})
	require.NotEmpty(t, rep.Results)
	first := rep.Results[0]
	assert.Equal(t, market.Pair{A: "BTCUSDT", B: "ETHUSDT"}, first.Pair)
	assert.Less(t, first.PValue, 0.05)
	assert.InDelta(t, 0.5, first.HedgeRatio, 0.05)
	assert.Contains(t, first.Critical, "5%")

	// every pair with the constant series is skipped, not fatal.
	require.Len(t, rep.Diagnostics, 3)
	for _, d := range rep.Diagnostics {
		assert.Equal(t, "PEGUSDT", d.Pair.B)
		assert.True(t, errors.Is(d.Err, stats.ErrDegenerate), d.String())
	}
	assert.Len(t, rep.Results, 3)
}

func TestScreenDeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	tbl := testTable(t)
	run := func(workers int) Report {
		opts := DefaultOptions()
		opts.Workers = workers
		s, err := New(tbl, opts)
		require.NoError(t, err)
		rep, err := s.Screen(context.Background())
		require.NoError(t, err)
		rep.Elapsed = 0
		return rep
	}

	assert.Equal(t, run(1), run(8))
}

func TestScreenThreshold(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.PValueThreshold = 1e-300
	s, err := New(testTable(t), opts)
	require.NoError(t, err)

	rep, err := s.Screen(context.Background())
	require.NoError(t, err)
	for _, r := range rep.Results {
		assert.Equal(t, r.PValue < opts.PValueThreshold, r.Accepted, r.Pair.String())
	}
}

func TestScreenTooFewSymbols(t *testing.T) {
	t.Parallel()

	tbl, err := market.NewPriceTable([]string{"BTCUSDT"}, map[string]market.PriceSeries{"BTCUSDT": {1, 2, 3}})
	require.NoError(t, err)
	s, err := New(tbl, DefaultOptions())
	require.NoError(t, err)

	rep, err := s.Screen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Results)
	assert.Empty(t, rep.Accepted())
}

func TestScreenCanceled(t *testing.T) {
	t.Parallel()

	s, err := New(testTable(t), DefaultOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Screen(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
