package main

import (
	"fmt"
	"time"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show transaction history",
		Long: `Show the transaction history, newest first.

Examples:
  # Last 20 transactions
  diboas history

  # Only buys from the past week
  diboas history --type buy --days 7`,
		RunE: runHistory,
	}

	cmd.Flags().String("type", "", "filter by transaction type (add, withdraw, send, transfer, buy, sell, start_strategy, stop_strategy)")
	cmd.Flags().Int("days", 0, "only show transactions from the past N days")
	cmd.Flags().Int("limit", 20, "maximum number of transactions to show")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	typeFlag, _ := cmd.Flags().GetString("type")
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")

	filter := service.TransactionFilter{Limit: limit}
	if typeFlag != "" {
		txType := model.TransactionType(typeFlag)
		if !txType.IsValid() {
			return fmt.Errorf("unknown transaction type: %s", typeFlag)
		}
		filter.Type = txType
	}
	if days > 0 {
		start := time.Now().AddDate(0, 0, -days)
		filter.StartDate = &start
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.GetTransactions(ctx, currentUser(), filter)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No transactions found.")
		return nil
	}

	fmt.Println(cli.FormatTitle("Transaction history"))
	for i := range records {
		fmt.Println(cli.RenderTransactionRow(&records[i]))
	}
	return nil
}
