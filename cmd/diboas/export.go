package main

import (
	"errors"
	"fmt"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/config"
	"github.com/diboas/diboas-go/internal/export"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export balance and history to Google Sheets",
		Long: `Export the current balance and full transaction history to a
Google Sheets spreadsheet.

Requires Google credentials, either in the config file under export.*
or via the GOOGLE_SHEETS_* environment variables.`,
		RunE: runExport,
	}

	cmd.Flags().Int("limit", 0, "only export the most recent N transactions (0 = all)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := config.LoadExportConfig()
	if err != nil {
		return fmt.Errorf("export not configured: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	balance, err := store.GetBalance(ctx, currentUser())
	if errors.Is(err, common.ErrNotFound) {
		balance = &model.Balance{UserID: currentUser()}
	} else if err != nil {
		return fmt.Errorf("failed to load balance: %w", err)
	}

	records, err := store.GetTransactions(ctx, currentUser(), service.TransactionFilter{Limit: limit})
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	strategies, err := store.GetStrategiesByUser(ctx, currentUser())
	if err != nil {
		return fmt.Errorf("failed to load strategies: %w", err)
	}

	writer, err := export.NewWriter(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Google Sheets: %w", err)
	}

	spreadsheetID, err := writer.Export(ctx, balance, records, strategies)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d transactions", len(records))))
	fmt.Printf("Spreadsheet: https://docs.google.com/spreadsheets/d/%s\n", spreadsheetID)
	return nil
}
