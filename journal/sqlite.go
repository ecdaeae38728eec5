package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/pairtrader/market"
)

// SQLite is the price store and run journal. Prices are kept as numbered
// snapshots; a symbol's column position is the order it first appeared in.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; avoids SQLITE_BUSY between the recorder and readers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// AppendSnapshot stores quotes as the next snapshot and returns its
// sequence number. Non-finite prices are dropped, which leaves the symbol
// missing from that snapshot.
func (j *SQLite) AppendSnapshot(ctx context.Context, quotes []Quote) (int64, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	seq, err := appendSnapshot(ctx, tx, quotes)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: commit snapshot: %w", err)
	}
	return seq, nil
}

// ImportTable appends every row of t as a snapshot, in one transaction.
func (j *SQLite) ImportTable(ctx context.Context, t *market.PriceTable) (int, error) {
	cols := t.Columns()
	series := make([]market.PriceSeries, len(cols))
	for i, sym := range cols {
		// misaligned columns are imported as far as they go.
		series[i], _ = t.Raw(sym)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	quotes := make([]Quote, 0, len(cols))
	for k := 0; k < t.Len(); k++ {
		quotes = quotes[:0]
		for i, sym := range cols {
			if k < len(series[i]) {
				quotes = append(quotes, Quote{Symbol: sym, Price: series[i][k]})
			}
		}
		if _, err := appendSnapshot(ctx, tx, quotes); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("journal: commit import: %w", err)
	}
	return t.Len(), nil
}

func appendSnapshot(ctx context.Context, tx *sql.Tx, quotes []Quote) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM prices`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("journal: next seq: %w", err)
	}

	for _, q := range quotes {
		if q.Symbol == "" || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO symbols (symbol, position)
			VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM symbols))`,
			q.Symbol,
		); err != nil {
			return 0, fmt.Errorf("journal: insert symbol %s: %w", q.Symbol, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO prices (seq, symbol, price)
			VALUES (?, ?, ?)`,
			seq, q.Symbol, q.Price,
		); err != nil {
			return 0, fmt.Errorf("journal: insert price %s: %w", q.Symbol, err)
		}
	}
	return seq, nil
}

// Symbols lists the stored symbols in column order.
func (j *SQLite) Symbols(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT symbol FROM symbols ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Snapshots is the number of stored snapshots.
func (j *SQLite) Snapshots(ctx context.Context) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT seq) FROM prices`).Scan(&n)
	return n, err
}

// LoadPriceTable pivots the stored snapshots into a table. Each snapshot is
// one row; a symbol missing from a snapshot gets NaN there, which marks its
// column misaligned.
func (j *SQLite) LoadPriceTable(ctx context.Context) (*market.PriceTable, error) {
	symbols, err := j.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("journal: load symbols: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT seq FROM prices ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("journal: load snapshots: %w", err)
	}
	index := map[int64]int{}
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			rows.Close()
			return nil, err
		}
		index[seq] = len(index)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	series := make(map[string]market.PriceSeries, len(symbols))
	for _, sym := range symbols {
		s := make(market.PriceSeries, len(index))
		for i := range s {
			s[i] = math.NaN()
		}
		series[sym] = s
	}

	rows, err = j.db.QueryContext(ctx, `SELECT seq, symbol, price FROM prices`)
	if err != nil {
		return nil, fmt.Errorf("journal: load prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			seq   int64
			sym   string
			price float64
		)
		if err := rows.Scan(&seq, &sym, &price); err != nil {
			return nil, err
		}
		if s, ok := series[sym]; ok {
			s[index[seq]] = price
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return market.NewPriceTable(symbols, series)
}
