package main

import (
	"errors"
	"fmt"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your unified balance",
		Long: `Show the unified balance across all buckets.

Available is spendable immediately, Invested is held in assets, and
Strategy is locked in running yield strategies.`,
		RunE: runBalance,
	}
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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

	fmt.Println(cli.RenderBalance(balance))
	return nil
}
