package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrader/backtest"
	"github.com/rustyeddy/pairtrader/config"
	"github.com/rustyeddy/pairtrader/journal"
	"github.com/rustyeddy/pairtrader/market"
	"github.com/rustyeddy/pairtrader/screen"
)

// pipeline wires the packages together for one command invocation.
type pipeline struct {
	cfg *config.Config
	log zerolog.Logger
	out io.Writer
}

func newPipeline(rc *RootConfig, out io.Writer) (*pipeline, error) {
	if rc.cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	if err := rc.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &pipeline{cfg: rc.cfg, log: rc.log, out: out}, nil
}

// source picks the price provider: the CSV table when configured, the
// SQLite store otherwise. The returned closer releases the store.
func (p *pipeline) source() (market.PriceSource, string, func() error, error) {
	if p.cfg.Store.TableCSV != "" {
		return market.CSVSource{Path: p.cfg.Store.TableCSV}, p.cfg.Store.TableCSV, func() error { return nil }, nil
	}
	j, err := journal.NewSQLite(p.cfg.Store.DBPath)
	if err != nil {
		return nil, "", nil, err
	}
	return j, p.cfg.Store.DBPath, j.Close, nil
}

// loadTable loads the price table once for the whole run.
func (p *pipeline) loadTable(ctx context.Context) (*market.PriceTable, string, error) {
	src, dataset, closeFn, err := p.source()
	if err != nil {
		return nil, "", err
	}
	defer closeFn()

	start := time.Now()
	tbl, err := src.LoadPriceTable(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load prices from %s: %w", dataset, err)
	}
	p.log.Info().
		Str("dataset", dataset).
		Int("symbols", len(tbl.Columns())).
		Int("observations", tbl.Len()).
		Strs("misaligned", tbl.Misaligned()).
		Dur("elapsed", time.Since(start)).
		Msg("price table loaded")
	return tbl, dataset, nil
}

func (p *pipeline) screen(ctx context.Context, tbl *market.PriceTable) (screen.Report, error) {
	s, err := screen.New(tbl, p.cfg.Screen, screen.WithLogger(p.log))
	if err != nil {
		return screen.Report{}, err
	}
	return s.Screen(ctx)
}

func (p *pipeline) backtest(ctx context.Context, tbl *market.PriceTable, pairs []market.Pair) (*backtest.Report, error) {
	r := &backtest.Runner{
		Table:    tbl,
		Spread:   p.cfg.Spread,
		Strategy: p.cfg.Strategy,
		Workers:  p.cfg.Screen.Workers,
		Logger:   &p.log,
	}
	return r.Run(ctx, pairs)
}

func screenRecords(rep screen.Report) []journal.ScreenRecord {
	out := make([]journal.ScreenRecord, 0, len(rep.Results))
	for _, r := range rep.Results {
		out = append(out, journal.ScreenRecord{
			Pair:      r.Pair,
			Statistic: r.Statistic,
			PValue:    r.PValue,
			UsedLag:   r.UsedLag,
			Accepted:  r.Accepted,
		})
	}
	return out
}

func resultRecords(rep *backtest.Report) []journal.ResultRecord {
	out := make([]journal.ResultRecord, 0, len(rep.Results))
	for _, r := range rep.Results {
		out = append(out, journal.ResultRecord{
			Pair:   r.Pair,
			PnL:    r.PnL,
			Trades: r.Trades,
			Wins:   r.Wins,
			Losses: r.Losses,
		})
	}
	return out
}

// writePairs writes the accepted pairs to the configured pair list.
func (p *pipeline) writePairs(rep screen.Report) error {
	if p.cfg.Report.PairsPath == "" {
		return nil
	}
	sink, err := journal.NewCSV("", p.cfg.Report.PairsPath)
	if err != nil {
		return err
	}
	for _, r := range screenRecords(rep) {
		if !r.Accepted {
			continue
		}
		if err := sink.RecordPair(r); err != nil {
			_ = sink.Close()
			return err
		}
	}
	p.log.Info().Str("path", p.cfg.Report.PairsPath).Int("pairs", len(rep.Accepted())).Msg("pair list written")
	return sink.Close()
}

// writeResults writes the pairs,returns table.
func (p *pipeline) writeResults(rep *backtest.Report) error {
	if p.cfg.Report.CSVPath == "" {
		return nil
	}
	sink, err := journal.NewCSV(p.cfg.Report.CSVPath, "")
	if err != nil {
		return err
	}
	for _, r := range resultRecords(rep) {
		if err := sink.RecordResult(r); err != nil {
			_ = sink.Close()
			return err
		}
	}
	p.log.Info().Str("path", p.cfg.Report.CSVPath).Int("pairs", len(rep.Results)).Msg("results written")
	return sink.Close()
}

// runSummary is everything a finished run reports.
type runSummary struct {
	RunID   string
	Created time.Time
	Dataset string
	Symbols int
	Screen  *screen.Report
	Results *backtest.Report
}

func (p *pipeline) orgSummary(s runSummary) journal.OrgSummary {
	o := journal.OrgSummary{
		RunID:           s.RunID,
		Created:         s.Created,
		Dataset:         s.Dataset,
		Symbols:         s.Symbols,
		PValueThreshold: p.cfg.Screen.PValueThreshold,
		ShortWindow:     p.cfg.Spread.ShortWindow,
		LongWindow:      p.cfg.Spread.LongWindow,
		EntryZ:          p.cfg.Strategy.EntryZ,
		ExitZ:           p.cfg.Strategy.ExitZ,
	}
	if s.Screen != nil {
		o.Tested = len(s.Screen.Results)
		o.Accepted = len(s.Screen.Accepted())
		for _, d := range s.Screen.Diagnostics {
			o.Notes = append(o.Notes, "skipped "+d.String())
		}
	}
	if s.Results != nil {
		o.Failed = len(s.Results.Failures)
		o.TotalPnL = s.Results.Total()
		ranked := s.Results.Ranked()
		rrep := &backtest.Report{Results: ranked}
		o.Results = resultRecords(rrep)
		for _, f := range s.Results.Failures {
			o.Notes = append(o.Notes, fmt.Sprintf("failed %s: %v", f.Pair, f.Err))
		}
	}
	return o
}

// finish writes every configured sink for a completed run.
func (p *pipeline) finish(ctx context.Context, s runSummary) error {
	if s.Screen != nil {
		if err := p.writePairs(*s.Screen); err != nil {
			return err
		}
	}
	if s.Results != nil {
		if err := p.writeResults(s.Results); err != nil {
			return err
		}
	}

	if p.cfg.Report.OrgPath != "" {
		if err := journal.WriteOrg(p.cfg.Report.OrgPath, p.orgSummary(s)); err != nil {
			return err
		}
		p.log.Info().Str("path", p.cfg.Report.OrgPath).Msg("org report written")
	}

	if p.cfg.Report.RecordDB {
		if err := p.record(ctx, s); err != nil {
			return err
		}
	}

	if s.Results != nil {
		backtest.PrintReport(p.out, s.Results, p.cfg.Report.Top)
	}
	return nil
}

func (p *pipeline) record(ctx context.Context, s runSummary) error {
	j, err := journal.NewSQLite(p.cfg.Store.DBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	run := journal.Run{
		RunID:   s.RunID,
		Created: s.Created,
		Dataset: s.Dataset,
		Params: map[string]any{
			"screen":   p.cfg.Screen,
			"spread":   p.cfg.Spread,
			"strategy": p.cfg.Strategy,
		},
	}
	if s.Screen != nil {
		run.Screen = screenRecords(*s.Screen)
	}
	if s.Results != nil {
		run.Results = resultRecords(s.Results)
		run.Failed = len(s.Results.Failures)
		run.TotalPnL = s.Results.Total()
	}
	if err := j.RecordRun(ctx, run); err != nil {
		return err
	}
	p.log.Info().Str("run_id", s.RunID).Msg("run recorded")
	return nil
}
