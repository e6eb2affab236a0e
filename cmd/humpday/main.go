package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"humpday-trader/internal/flows"
	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/store"
	"humpday-trader/internal/trace"
)

type rootOptions struct {
	configPath  string
	dryRun      bool
	accountType string
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "humpday",
		Short: "Scheduled trading flows: day trading a Nasdaq-100 pick and ETF rebalancing",
		Long: `humpday runs trading flows against an Alpaca account and reports to chat.

Flows:
  prospect   pick a Nasdaq-100 stock, research it and post the report
  trade      buy the current stock
  report     sell the current stock and post the day's result
  daytrade   prospect, trade and report with pauses in between
  rebalance  rebalance the ETF portfolio toward its targets

Examples:
  humpday rebalance --dry-run
  humpday prospect --ticker ADBE
  humpday schedule`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "plan orders without submitting them; reports go to the log")
	rootCmd.PersistentFlags().StringVar(&opts.accountType, "account-type", "", "paper or live (default from config)")

	rootCmd.AddCommand(
		prospectCmd(opts),
		flowCmd(opts, flows.NameTrader, "Buy the current stock"),
		flowCmd(opts, flows.NameReporter, "Sell the current stock and post the result"),
		dayTradeCmd(opts),
		rebalanceCmd(opts),
		scheduleCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp runs fn with a fully bootstrapped app and a signal-aware context.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initializeSystem(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(shutdownCtx)
	}()

	a, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func runFlow(ctx context.Context, a *app, f interfaces.Flow, err error) error {
	if err != nil {
		return err
	}
	return flows.Run(ctx, f, a.notifier, a.channelFor(f.Name()))
}

func flowCmd(opts *rootOptions, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				f, err := a.flow(name)
				return runFlow(ctx, a, f, err)
			})
		},
	}
}

func prospectCmd(opts *rootOptions) *cobra.Command {
	var ticker string
	cmd := &cobra.Command{
		Use:   flows.NameProspector,
		Short: "Pick and research a stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				f, err := a.prospector(ticker)
				if err != nil {
					return err
				}
				return runFlow(ctx, a, f, nil)
			})
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "research this ticker instead of a random pick")
	return cmd
}

func dayTradeCmd(opts *rootOptions) *cobra.Command {
	var ticker string
	cmd := &cobra.Command{
		Use:   flows.NameDayTrader,
		Short: "Prospect, trade and report in one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				f, err := a.dayTrader(ticker)
				if err != nil {
					return err
				}
				return runFlow(ctx, a, f, nil)
			})
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "trade this ticker instead of a random pick")
	return cmd
}

func rebalanceCmd(opts *rootOptions) *cobra.Command {
	var (
		sellBalancing bool
		cashAside     int64
		etfs          string
	)
	cmd := &cobra.Command{
		Use:   flows.NameRebalance,
		Short: "Rebalance the ETF portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if cmd.Flags().Changed("sell-balancing") {
					a.cfg.Rebalance.SellBalancing = sellBalancing
				}
				if cmd.Flags().Changed("cash-to-set-aside") {
					if cashAside < 0 {
						return fmt.Errorf("--cash-to-set-aside must be >= 0, got %d", cashAside)
					}
					a.cfg.Rebalance.CashToSetAside = cashAside
				}
				if etfs != "" {
					a.cfg.Rebalance.ETFs = store.SplitSymbols(etfs)
				}
				f, err := a.rebalancer()
				if err != nil {
					return err
				}
				return runFlow(ctx, a, f, nil)
			})
		},
	}
	cmd.Flags().BoolVar(&sellBalancing, "sell-balancing", false, "sell overweight positions before buying")
	cmd.Flags().Int64Var(&cashAside, "cash-to-set-aside", 0, "cash reserve kept out of the rebalance")
	cmd.Flags().StringVar(&etfs, "etfs", "", "comma-separated ETF symbols (default from config)")
	return cmd
}

func scheduleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the configured flows on their cron schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if len(a.cfg.Schedule) == 0 {
					return fmt.Errorf("no schedule configured in %s", opts.configPath)
				}
				s := flows.NewScheduler(a.loc, a.notifier, a.cfg.Prospect.Channel)

				names := make([]string, 0, len(a.cfg.Schedule))
				for name := range a.cfg.Schedule {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					f, err := a.flow(name)
					if err != nil {
						return err
					}
					if err := s.Add(a.cfg.Schedule[name], f); err != nil {
						return err
					}
				}
				logger.Info(ctx, "Waiting for scheduled flows", "flows", names)
				return s.Run(ctx)
			})
		},
	}
}
