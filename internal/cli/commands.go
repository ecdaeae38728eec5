package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/config"
	"github.com/rustyeddy/pairtrader/feed/binance"
	"github.com/rustyeddy/pairtrader/internal/id"
	"github.com/rustyeddy/pairtrader/journal"
	"github.com/rustyeddy/pairtrader/market"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newScreenCmd(rc *RootConfig) *cobra.Command {
	var (
		out       string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Test every pair for cointegration and write the accepted pair list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("out") {
				rc.cfg.Report.PairsPath = out
			}
			if cmd.Flags().Changed("p-value") {
				rc.cfg.Screen.PValueThreshold = threshold
			}
			p, err := newPipeline(rc, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			tbl, _, err := p.loadTable(ctx)
			if err != nil {
				return err
			}
			rep, err := p.screen(ctx, tbl)
			if err != nil {
				return err
			}
			if err := p.writePairs(rep); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Symbols:  %d (excluded %d)\n", len(rep.Symbols), len(rep.Excluded))
			fmt.Fprintf(w, "Tested:   %d\n", len(rep.Results))
			fmt.Fprintf(w, "Skipped:  %d\n", len(rep.Diagnostics))
			fmt.Fprintf(w, "Accepted: %d\n", len(rep.Accepted()))
			for _, r := range rep.Results {
				if r.Accepted {
					fmt.Fprintf(w, "  %-24s p=%.4g stat=%.4f\n", r.Pair, r.PValue, r.Statistic)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Pair list output (default report.pairs_path)")
	cmd.Flags().Float64Var(&threshold, "p-value", 0.05, "Acceptance threshold")
	return cmd
}

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var (
		pairsPath string
		pairArgs  []string
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Simulate the mean reversion strategy on a pair list",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(rc, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			var pairs []market.Pair
			for _, s := range pairArgs {
				pr, err := market.ParsePair(s)
				if err != nil {
					return err
				}
				pairs = append(pairs, pr)
			}
			if len(pairs) == 0 {
				path := pairsPath
				if path == "" {
					path = rc.cfg.Report.PairsPath
				}
				if path == "" {
					return fmt.Errorf("--pairs or --pair is required")
				}
				if pairs, err = journal.LoadPairsCSV(path); err != nil {
					return fmt.Errorf("load pairs: %w", err)
				}
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			tbl, dataset, err := p.loadTable(ctx)
			if err != nil {
				return err
			}
			rep, err := p.backtest(ctx, tbl, pairs)
			if err != nil {
				return err
			}
			// the pair list is an input here; keep it.
			p.cfg.Report.PairsPath = ""
			return p.finish(ctx, runSummary{
				RunID:   id.New(),
				Created: time.Now(),
				Dataset: dataset,
				Symbols: len(tbl.Columns()),
				Results: rep,
			})
		},
	}

	cmd.Flags().StringVar(&pairsPath, "pairs", "", "Pair list CSV (default report.pairs_path)")
	cmd.Flags().StringSliceVar(&pairArgs, "pair", nil, "Pair to test, e.g. BTCUSDT/ETHUSDT (repeatable)")
	return cmd
}

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		orgPath string
		record  bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen, backtest and report in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("org") {
				rc.cfg.Report.OrgPath = orgPath
			}
			if cmd.Flags().Changed("record") {
				rc.cfg.Report.RecordDB = record
			}
			p, err := newPipeline(rc, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			tbl, dataset, err := p.loadTable(ctx)
			if err != nil {
				return err
			}
			srep, err := p.screen(ctx, tbl)
			if err != nil {
				return err
			}
			brep, err := p.backtest(ctx, tbl, srep.Accepted())
			if err != nil {
				return err
			}

			runID := id.New()
			if err := p.finish(ctx, runSummary{
				RunID:   runID,
				Created: time.Now(),
				Dataset: dataset,
				Symbols: len(srep.Symbols),
				Screen:  &srep,
				Results: brep,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run ID:        %s\n", runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&orgPath, "org", "", "Write an org-mode report to this path")
	cmd.Flags().BoolVar(&record, "record", false, "Record the run in the SQLite journal")
	return cmd
}

func newRecordCmd(rc *RootConfig) *cobra.Command {
	var (
		max     int
		symbols []string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record live Binance mark prices into the price store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.cfg
			if cmd.Flags().Changed("max") {
				cfg.Feed.MaxSnapshots = max
			}
			if cmd.Flags().Changed("symbols") {
				cfg.Feed.Symbols = symbols
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if cfg.Store.DBPath == "" {
				return fmt.Errorf("store.db_path is required")
			}
			timeout, err := cfg.Feed.ParseHandshakeTimeout()
			if err != nil {
				return err
			}

			j, err := journal.NewSQLite(cfg.Store.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx, cancel := signalContext(cmd)
			defer cancel()

			rec := &binance.Recorder{
				URL:              cfg.Feed.URL,
				Store:            j,
				Symbols:          cfg.Feed.Symbols,
				MaxSnapshots:     cfg.Feed.MaxSnapshots,
				HandshakeTimeout: timeout,
				Logger:           &rc.log,
			}
			n, err := rec.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d snapshots into %s\n", n, cfg.Store.DBPath)
			return err
		},
	}

	cmd.Flags().IntVar(&max, "max", 0, "Stop after this many snapshots (0 = until interrupted)")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Only record these symbols")
	return cmd
}

func newImportCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "import <prices.csv>",
		Short: "Append a wide CSV price table to the price store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rc.cfg.Store.DBPath == "" {
				return fmt.Errorf("store.db_path is required")
			}
			tbl, err := market.CSVSource{Path: args[0]}.LoadPriceTable(cmd.Context())
			if err != nil {
				return err
			}

			j, err := journal.NewSQLite(rc.cfg.Store.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			n, err := j.ImportTable(cmd.Context(), tbl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows x %d symbols into %s\n", n, len(tbl.Columns()), rc.cfg.Store.DBPath)
			if bad := tbl.Misaligned(); len(bad) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Incomplete columns: %s\n", strings.Join(bad, ", "))
			}
			return nil
		},
	}
}

func newConfigCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration (YAML or JSON by extension)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := config.Default().SaveToFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a configuration file (default --config)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rc.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("a config path is required")
			}
			if _, err := config.LoadFromFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			return nil
		},
	})

	return cmd
}

func newRunsCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded in the journal",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recorded run ids, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(rc.cfg.Store.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			ids, err := j.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			for _, runID := range ids {
				created, _ := id.Time(runID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", runID, created.Format(time.RFC3339))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded run as an org-mode block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.NewSQLite(rc.cfg.Store.DBPath)
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			accepted := 0
			for _, s := range run.Screen {
				if s.Accepted {
					accepted++
				}
			}
			if err := journal.FormatOrg(cmd.OutOrStdout(), journal.OrgSummary{
				RunID:    run.RunID,
				Created:  run.Created,
				Dataset:  run.Dataset,
				Tested:   len(run.Screen),
				Accepted: accepted,
				Failed:   run.Failed,
				TotalPnL: run.TotalPnL,
				Results:  run.Results,
			}); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "\n** Parameters")
			fmt.Fprintln(w, "#+begin_src yaml")
			fmt.Fprint(w, run.ParamsYAML)
			fmt.Fprintln(w, "#+end_src")
			return nil
		},
	})

	return cmd
}
