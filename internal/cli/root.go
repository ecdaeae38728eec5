package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrader/config"
	"github.com/rustyeddy/pairtrader/internal/logging"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// RootConfig holds the persistent flags and what PersistentPreRunE builds
// from them.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
	LogFormat  string
	EnvFile    string

	cfg *config.Config
	log zerolog.Logger

	// logOut overrides stderr for log output.
	logOut io.Writer
}

func (rc *RootConfig) Config() *config.Config {
	return rc.cfg
}

// load reads .env, the config file, environment overrides and flags, in
// that order of precedence (last wins).
func (rc *RootConfig) load(cmd *cobra.Command) error {
	if rc.EnvFile != "" {
		if err := godotenv.Load(rc.EnvFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", rc.EnvFile, err)
		}
	}

	cfg := config.Default()
	if rc.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(rc.ConfigPath); err != nil {
			return err
		}
	}
	cfg.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Store.DBPath = rc.DBPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = rc.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = rc.LogFormat
	}

	rc.cfg = cfg
	w := rc.logOut
	if w == nil {
		w = cmd.ErrOrStderr()
	}
	rc.log = logging.New(cfg.Log.Level, cfg.Log.Format, w)
	return nil
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&RootConfig{})
}

func newRootCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pairtrader",
		Short:         "pairtrader: cointegration screening and pairs backtesting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global / persistent flags
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "./prices.db", "SQLite price store and journal")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "console", "Log format: console|json")
	cmd.PersistentFlags().StringVar(&rc.EnvFile, "env-file", ".env", "Environment file loaded at startup")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return rc.load(cmd)
	}

	// Subcommands
	cmd.AddCommand(
		newScreenCmd(rc),
		newBacktestCmd(rc),
		newRunCmd(rc),
		newRecordCmd(rc),
		newImportCmd(rc),
		newConfigCmd(rc),
		newRunsCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairtrader (%s)\n", Version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
