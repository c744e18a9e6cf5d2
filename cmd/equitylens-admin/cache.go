package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ternarybob/equitylens/internal/common"
	"github.com/ternarybob/equitylens/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached tickers with their identity and cached sections",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [ticker]",
	Short: "Print a cached record, or one section with --section",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [ticker]",
	Short: "Remove a ticker and all its cached sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Open the configured store, applying any pending schema migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var showSection string

func init() {
	showCmd.Flags().StringVarP(&showSection, "section", "s", "", "Section key (biz, exec, finance, call, ta_price, ta_analyst, ta_social)")
}

func runList(cmd *cobra.Command, args []string) error {
	application, err := openServices()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()
	tickers, err := application.Store.ListTickers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tNAME\tEXCHANGE\tSECTIONS\tUPDATED")
	for _, ticker := range tickers {
		record, err := application.Store.Get(ctx, ticker)
		if err != nil {
			logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to read cached record")
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
			record.Ticker,
			record.LocalizedName,
			record.Exchange,
			len(record.Sections), len(models.AllSections),
			record.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d ticker(s)\n", len(tickers))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	ticker := common.NormalizeTicker(args[0])
	if ticker == "" {
		return models.ErrInvalidTicker
	}

	application, err := openServices()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()

	if showSection != "" {
		section, err := models.ParseSection(showSection)
		if err != nil {
			return err
		}
		content, err := application.Store.GetSection(ctx, ticker, section)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", ticker, section, err)
		}
		fmt.Println(content)
		return nil
	}

	record, err := application.Store.Get(ctx, ticker)
	if err != nil {
		return fmt.Errorf("%s: %w", ticker, err)
	}

	fmt.Printf("Ticker:    %s\n", record.Ticker)
	fmt.Printf("Name:      %s\n", record.EnglishName)
	fmt.Printf("Localized: %s\n", record.LocalizedName)
	fmt.Printf("Exchange:  %s\n", record.Exchange)
	fmt.Printf("Created:   %s\n", record.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:   %s\n", record.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()
	for _, section := range models.AllSections {
		content, ok := record.Sections[section]
		status := "-"
		if ok {
			status = fmt.Sprintf("%d chars", utf8.RuneCountInString(content))
		}
		fmt.Printf("  %-12s %s\n", section, status)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ticker := common.NormalizeTicker(args[0])
	if ticker == "" {
		return models.ErrInvalidTicker
	}

	application, err := openServices()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Store.DeleteTicker(context.Background(), ticker); err != nil {
		return fmt.Errorf("%s: %w", ticker, err)
	}

	logger.Info().Str("ticker", ticker).Msg("Deleted cached ticker")
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	application, err := openServices()
	if err != nil {
		return err
	}
	defer application.Close()

	logger.Info().
		Str("storage", config.Storage.Type).
		Msg("Store opened, schema is current")
	return nil
}
