package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/pairtrader/market"
)

// RecordRun stores a run with its screening and backtest rows in one
// transaction. Params is stored as YAML.
func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	if r.RunID == "" {
		return fmt.Errorf("journal: run id is required")
	}
	if r.Created.IsZero() {
		r.Created = time.Now()
	}

	params := r.ParamsYAML
	if r.Params != nil {
		b, err := yaml.Marshal(r.Params)
		if err != nil {
			return fmt.Errorf("journal: marshal params: %w", err)
		}
		params = string(b)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created, dataset, params, failed, total_pnl)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Dataset, params, r.Failed, r.TotalPnL,
	); err != nil {
		return fmt.Errorf("journal: insert run %s: %w", r.RunID, err)
	}

	for _, s := range r.Screen {
		// exactly collinear pairs have a -Inf statistic, stored as NULL.
		var stat sql.NullFloat64
		if !math.IsInf(s.Statistic, 0) && !math.IsNaN(s.Statistic) {
			stat = sql.NullFloat64{Float64: s.Statistic, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO screen_results (run_id, symbol_a, symbol_b, statistic, p_value, used_lag, accepted)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, s.Pair.A, s.Pair.B, stat, s.PValue, s.UsedLag, s.Accepted,
		); err != nil {
			return fmt.Errorf("journal: insert screen result %s: %w", s.Pair, err)
		}
	}

	for _, res := range r.Results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, symbol_a, symbol_b, pnl, trades, wins, losses)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, res.Pair.A, res.Pair.B, res.PnL, res.Trades, res.Wins, res.Losses,
		); err != nil {
			return fmt.Errorf("journal: insert result %s: %w", res.Pair, err)
		}
	}

	return tx.Commit()
}

// GetRun returns the run header. Results and Screen are loaded too.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := j.db.QueryRowContext(ctx, `
		SELECT run_id, created, dataset, params, failed, total_pnl
		FROM runs
		WHERE run_id = ?`, runID,
	).Scan(&r.RunID, &r.Created, &r.Dataset, &r.ParamsYAML, &r.Failed, &r.TotalPnL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("journal: run %q not found", runID)
		}
		return Run{}, err
	}

	if r.Results, err = j.ListResults(ctx, runID); err != nil {
		return Run{}, err
	}
	if r.Screen, err = j.ListScreenResults(ctx, runID); err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns run ids, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListResults returns a run's backtest rows, best PnL first.
func (j *SQLite) ListResults(ctx context.Context, runID string) ([]ResultRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT symbol_a, symbol_b, pnl, trades, wins, losses
		FROM results
		WHERE run_id = ?
		ORDER BY pnl DESC, symbol_a ASC, symbol_b ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var rec ResultRecord
		if err := rows.Scan(&rec.Pair.A, &rec.Pair.B, &rec.PnL, &rec.Trades, &rec.Wins, &rec.Losses); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListScreenResults returns a run's screening rows, lowest p-value first.
func (j *SQLite) ListScreenResults(ctx context.Context, runID string) ([]ScreenRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT symbol_a, symbol_b, statistic, p_value, used_lag, accepted
		FROM screen_results
		WHERE run_id = ?
		ORDER BY p_value ASC, symbol_a ASC, symbol_b ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScreenRecord
	for rows.Next() {
		var (
			rec  ScreenRecord
			stat sql.NullFloat64
		)
		if err := rows.Scan(&rec.Pair.A, &rec.Pair.B, &stat, &rec.PValue, &rec.UsedLag, &rec.Accepted); err != nil {
			return nil, err
		}
		rec.Statistic = math.Inf(-1)
		if stat.Valid {
			rec.Statistic = stat.Float64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AcceptedPairs returns the pairs a run's screen accepted.
func (j *SQLite) AcceptedPairs(ctx context.Context, runID string) ([]market.Pair, error) {
	recs, err := j.ListScreenResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	var out []market.Pair
	for _, r := range recs {
		if r.Accepted {
			out = append(out, r.Pair)
		}
	}
	return out, nil
}
