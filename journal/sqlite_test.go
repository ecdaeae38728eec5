package journal

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrader/market"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	for _, name := range []string{"symbols", "prices", "runs", "results", "screen_results"} {
		assert.True(t, found[name], name)
	}
}

func TestSQLiteSnapshotsPivot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	seq, err := j.AppendSnapshot(ctx, []Quote{{"ETHUSDT", 2000}, {"BTCUSDT", 40000}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	seq, err = j.AppendSnapshot(ctx, []Quote{{"BTCUSDT", 40100}, {"ETHUSDT", 2010}, {"SOLUSDT", 100}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	_, err = j.AppendSnapshot(ctx, []Quote{{"BTCUSDT", 40200}, {"ETHUSDT", math.NaN()}, {"SOLUSDT", 101}})
	require.NoError(t, err)

	n, err := j.Snapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	syms, err := j.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT", "BTCUSDT", "SOLUSDT"}, syms)

	tbl, err := j.LoadPriceTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, syms, tbl.Columns())

	btc, err := tbl.Series("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, market.PriceSeries{40000, 40100, 40200}, btc)

	// ETH is missing from the last snapshot and SOL from the first.
	assert.Equal(t, []string{"ETHUSDT", "SOLUSDT"}, tbl.Misaligned())
	_, err = tbl.Series("SOLUSDT")
	assert.ErrorIs(t, err, market.ErrMisaligned)
}

func TestSQLiteImportTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	in, err := market.NewPriceTable([]string{"BTCUSDT", "ETHUSDT"}, map[string]market.PriceSeries{
		"BTCUSDT": {1, 2, 3, 4},
		"ETHUSDT": {10, 20, 30, 40},
	})
	require.NoError(t, err)

	n, err := j.ImportTable(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	out, err := j.LoadPriceTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, in.Columns(), out.Columns())
	for _, sym := range in.Columns() {
		want, _ := in.Series(sym)
		got, err := out.Series(sym)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// a second import appends after the existing snapshots.
	_, err = j.ImportTable(ctx, in)
	require.NoError(t, err)
	out, err = j.LoadPriceTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, out.Len())
}

func TestSQLiteEmptyStore(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	tbl, err := j.LoadPriceTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Columns())
}

func TestSQLiteRecordRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	btcEth := market.Pair{A: "BTCUSDT", B: "ETHUSDT"}
	btcSol := market.Pair{A: "BTCUSDT", B: "SOLUSDT"}
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	run := Run{
		RunID:   "01HRUN",
		Created: created,
		Dataset: "prices.db",
		Params:  map[string]any{"long_window": 50, "entry_z": 3.0},
		Failed:  1,
		Results: []ResultRecord{
			{Pair: btcSol, PnL: -1.5, Trades: 1, Losses: 1},
			{Pair: btcEth, PnL: 12.25, Trades: 3, Wins: 2, Losses: 1},
		},
		Screen: []ScreenRecord{
			{Pair: btcEth, Statistic: -4.2, PValue: 0.001, UsedLag: 2, Accepted: true},
			{Pair: btcSol, Statistic: math.Inf(-1), PValue: 0, Accepted: true},
			{Pair: market.Pair{A: "ETHUSDT", B: "SOLUSDT"}, Statistic: -1.1, PValue: 0.6},
		},
	}
	run.TotalPnL = 10.75
	require.NoError(t, j.RecordRun(ctx, run))

	got, err := j.GetRun(ctx, "01HRUN")
	require.NoError(t, err)
	assert.Equal(t, "prices.db", got.Dataset)
	assert.True(t, created.Equal(got.Created))
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 10.75, got.TotalPnL)
	assert.Contains(t, got.ParamsYAML, "long_window: 50")

	require.Len(t, got.Results, 2)
	assert.Equal(t, btcEth, got.Results[0].Pair)
	assert.Equal(t, 12.25, got.Results[0].PnL)
	assert.Equal(t, 2, got.Results[0].Wins)

	require.Len(t, got.Screen, 3)
	assert.Equal(t, btcSol, got.Screen[0].Pair)
	assert.True(t, math.IsInf(got.Screen[0].Statistic, -1))
	assert.Equal(t, -4.2, got.Screen[1].Statistic)
	assert.False(t, got.Screen[2].Accepted)

	pairs, err := j.AcceptedPairs(ctx, "01HRUN")
	require.NoError(t, err)
	assert.ElementsMatch(t, []market.Pair{btcEth, btcSol}, pairs)

	ids, err := j.ListRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"01HRUN"}, ids)
}

func TestSQLiteRecordRunErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	err := j.RecordRun(ctx, Run{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run id is required")

	require.NoError(t, j.RecordRun(ctx, Run{RunID: "dup"}))
	assert.Error(t, j.RecordRun(ctx, Run{RunID: "dup"}))

	_, err = j.GetRun(ctx, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `run "missing" not found`)
}
