package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/services/llm"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [ticker]",
	Short: "Resolve a ticker's identity without caching it",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Run one warmup pass over the [warmup] watchlist now",
	Args:  cobra.NoArgs,
	RunE:  runWarmup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Does not need configuration
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		common.LoadVersionFromFile()
		fmt.Printf("EquityLens version %s\n", common.GetFullVersion())
	},
}

func runResolve(cmd *cobra.Command, args []string) error {
	application, err := openServices()
	if err != nil {
		return err
	}
	defer application.Close()

	identity, err := application.Orchestrator.ResolveIdentity(cmd.Context(), common.NormalizeTicker(args[0]))
	if err != nil {
		return err
	}

	fmt.Printf("Ticker:    %s\n", identity.Ticker)
	fmt.Printf("Name:      %s\n", identity.EnglishName)
	fmt.Printf("Localized: %s\n", identity.LocalizedName)
	fmt.Printf("Exchange:  %s\n", identity.Exchange)
	if llm.IsPlaceholder(identity.LocalizedName) {
		fmt.Println("(localized name unavailable, English name would be stored)")
	}
	return nil
}

func runWarmup(cmd *cobra.Command, args []string) error {
	if len(config.Warmup.Tickers) == 0 {
		return fmt.Errorf("no tickers configured in [warmup]")
	}

	application, err := openServices()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := application.Warmup.RunOnce(ctx)
	fmt.Printf("cached=%d generated=%d degraded=%d failed=%d duration=%s\n",
		summary.Cached, summary.Generated, summary.Degraded, summary.Failed, summary.Duration)

	if summary.Failed > 0 {
		return fmt.Errorf("%d section(s) failed", summary.Failed)
	}
	return nil
}
