package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"routedash/internal/config"
	"routedash/internal/dates"
	"routedash/internal/diagnostics"
	"routedash/internal/logging"
	"routedash/internal/mcp"
	"routedash/internal/metrics"
	"routedash/internal/prefs"
	"routedash/internal/workday"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	engine   *diagnostics.Engine
	registry *metrics.Registry
	closers  []func() error
)

var rootCmd = &cobra.Command{
	Use:   "routedash",
	Short: "routedash explains route time from parcel and letter volume",
	Long: `A diagnostics engine for mail carrier route days. It fits route minutes to parcel
and letter volume, ranks anomalous days, detects post-holiday catch-up and compares days.
Without a subcommand it serves the diagnostics as MCP tools over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if err := wireEngine(); err != nil {
			return err
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("rows", cfg.Rows.Backend).
			Str("prefs", cfg.Prefs.Backend).
			Msg("routedash starting")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func wireEngine() error {
	var source workday.Source
	switch cfg.Rows.Backend {
	case config.RowsPostgres:
		pg, err := workday.OpenPostgresSource(cfg.Rows.DatabaseURL, cfg.Rows.QueryTimeout)
		if err != nil {
			return err
		}
		closers = append(closers, pg.Close)
		source = pg
	default:
		source = workday.FileSource{Path: cfg.Rows.File}
	}

	var store prefs.Store
	switch cfg.Prefs.Backend {
	case config.PrefsRedis:
		rs, err := prefs.OpenRedisStore(cfg.Prefs.RedisAddr, cfg.Prefs.RedisPassword, cfg.Prefs.RedisDB)
		if err != nil {
			return err
		}
		closers = append(closers, rs.Close)
		store = rs
	default:
		fs, err := prefs.OpenFileStore(cfg.Prefs.File)
		if err != nil {
			return err
		}
		store = fs
	}

	clock, err := dates.LoadClock(cfg.Timezone)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to UTC for calendar dates")
	}

	registry = metrics.NewRegistry()
	engine = diagnostics.NewEngine(source, prefs.New(store), cfg.Tuning, clock, registry)
	return nil
}

func closeAll() {
	for _, c := range closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to release resource")
		}
	}
	closers = nil
}

func runMCP(ctx context.Context) error {
	return mcp.NewServer(engine, Version).Start(ctx)
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(mcpCmd, serveCmd)
	rootCmd.AddCommand(fitCmd, residualsCmd, compareCmd, baselinesCmd)
	rootCmd.AddCommand(dismissCmd, reinstateCmd, holidayDownweightCmd, scopeCmd)
}
