package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"FlowHunter/internal/di"
	"FlowHunter/internal/usecase"
	"FlowHunter/pkg/config"
	"FlowHunter/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath     string
	dotenvPath     string
	reloadInterval time.Duration
	scanTop        int
	scanTimeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "flowhunter",
	Short:        "Cross-venue order flow and market structure signal engine",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream trades, scan the universe and emit signals",
	RunE:  runApp,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one hologram scan and print the ranked watchlist",
	RunE:  runScan,
}

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load and validate the configuration, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnv(configPath, dotenvPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: env=%s venues=%d symbols=%d bus=%s\n",
			cfg.Environment, len(cfg.Venues), len(cfg.Symbols), cfg.Bus.Type)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&dotenvPath, "env-file", ".env", "dotenv file with overrides")
	runCmd.Flags().DurationVar(&reloadInterval, "reload-interval", 10*time.Second, "config file poll interval, 0 disables hot reload")
	scanCmd.Flags().IntVar(&scanTop, "top", 0, "rows to print, 0 uses hologram.watchlist_size")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "scan deadline")
	rootCmd.AddCommand(runCmd, scanCmd, validateCmd)
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithEnv(configPath, dotenvPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

func runApp(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	log.Info("starting flowhunter",
		logger.String("env", cfg.Environment),
		logger.String("bus", cfg.Bus.Type),
		logger.String("market_data", cfg.MarketData.Provider),
	)

	store := config.NewStore(cfg)
	app, cleanup, err := di.InitializeApp(cfg, store, log)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	if reloadInterval > 0 {
		w := config.NewWatcher(configPath, reloadInterval, store, log)
		app.Go("config-watcher", func(ctx context.Context) error {
			w.Run(ctx)
			return nil
		})
	}
	return app.Run(cmd.Context())
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	scanner, cleanup, err := di.NewOneShotScanner(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()
	states := scanner.Scan(ctx)
	if scanTop > 0 {
		states = usecase.Rank(states, scanTop)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSTATUS\tSCORE\tBIAS\tRS\tVETO")
	for _, st := range states {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%+.2f\t%s\n",
			st.Symbol, st.Status, st.Score, st.Direction, st.RS, st.Veto.Reason)
	}
	return tw.Flush()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
