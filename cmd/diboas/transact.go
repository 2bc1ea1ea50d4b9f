package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/diboas/diboas-go/internal/chain"
	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/flow"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/validation"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// transactionCmds returns the money-movement commands. They all run the
// same confirm-then-execute flow and differ only in the descriptor they
// build from their arguments.
func transactionCmds() []*cobra.Command {
	cmds := buildTransactionCmds()
	for _, cmd := range cmds {
		cmd.Flags().BoolP("yes", "y", false, "skip the interactive confirmation")
	}
	return cmds
}

func buildTransactionCmds() []*cobra.Command {
	add := &cobra.Command{
		Use:   "add <amount>",
		Short: "Add funds to your available balance",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransaction(model.TypeAdd),
	}
	add.Flags().String("method", "credit_debit_card", "payment method (credit_debit_card, bank_account, apple_pay, google_pay, paypal)")

	withdraw := &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw funds to a bank account or card",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransaction(model.TypeWithdraw),
	}
	withdraw.Flags().String("method", "bank_account", "payout method")

	send := &cobra.Command{
		Use:   "send <amount> <username>",
		Short: "Send money to another diBoaS user",
		Args:  cobra.ExactArgs(2),
		RunE:  runTransaction(model.TypeSend),
	}

	transfer := &cobra.Command{
		Use:   "transfer <amount> <address>",
		Short: "Transfer funds to an external wallet address",
		Args:  cobra.ExactArgs(2),
		RunE:  runTransaction(model.TypeTransfer),
	}
	transfer.Flags().String("chain", "SOL", "target chain (SOL, ETH, BTC, SUI)")

	buy := &cobra.Command{
		Use:   "buy <amount>",
		Short: "Buy an asset with wallet funds or a payment method",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransaction(model.TypeBuy),
	}
	buy.Flags().String("asset", "BTC", "asset to buy")
	buy.Flags().String("chain", "BTC", "chain the asset lives on")
	buy.Flags().String("method", "diboas_wallet", "funding method")

	sell := &cobra.Command{
		Use:   "sell <amount>",
		Short: "Sell an asset back into your available balance",
		Args:  cobra.ExactArgs(1),
		RunE:  runTransaction(model.TypeSell),
	}
	sell.Flags().String("asset", "BTC", "asset to sell")
	sell.Flags().String("chain", "BTC", "chain the asset lives on")

	return []*cobra.Command{add, withdraw, send, transfer, buy, sell}
}

// runTransaction builds the RunE for one transaction type.
func runTransaction(txType model.TransactionType) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		descriptor, err := buildDescriptor(cmd, txType, args)
		if err != nil {
			return err
		}
		skipConfirm, _ := cmd.Flags().GetBool("yes")
		return executeFlowWith(cmd.Context(), descriptor, skipConfirm)
	}
}

func buildDescriptor(cmd *cobra.Command, txType model.TransactionType, args []string) (model.TransactionDescriptor, error) {
	amount, err := parseAmount(args[0])
	if err != nil {
		return model.TransactionDescriptor{}, err
	}

	d := model.TransactionDescriptor{
		Type:          txType,
		Amount:        amount,
		Asset:         "USDC",
		Chain:         model.ChainSOL,
		PaymentMethod: model.MethodDiBoaSWallet,
	}

	if flagValue := flagString(cmd, "method"); flagValue != "" {
		d.PaymentMethod = model.PaymentMethod(flagValue)
	}
	if flagValue := flagString(cmd, "asset"); flagValue != "" {
		d.Asset = flagValue
	}
	if flagValue := flagString(cmd, "chain"); flagValue != "" {
		d.Chain = model.Chain(flagValue)
		if !d.Chain.IsValid() {
			return model.TransactionDescriptor{}, fmt.Errorf("unknown chain: %s", flagValue)
		}
	}

	if txType.RequiresRecipient() {
		d.Recipient = args[1]
	}
	if txType == model.TypeTransfer {
		d.PaymentMethod = model.MethodExternalWallet
	}

	return d, nil
}

func flagString(cmd *cobra.Command, name string) string {
	if cmd.Flags().Lookup(name) == nil {
		return ""
	}
	value, _ := cmd.Flags().GetString(name)
	return value
}

// executeFlow drives a descriptor through validation, an interactive
// confirmation and on-chain execution, showing confirmation progress.
func executeFlow(ctx context.Context, descriptor model.TransactionDescriptor) error {
	return executeFlowWith(ctx, descriptor, false)
}

func executeFlowWith(ctx context.Context, descriptor model.TransactionDescriptor, skipConfirm bool) error {
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	gateway := chain.NewGateway()
	orchestrator, err := flow.NewOrchestrator(flow.Deps{
		Storage:   store,
		Validator: validation.NewValidator(store),
		Fees:      fees.NewCalculator(),
		Executor:  gateway,
		Status:    gateway,
	})
	if err != nil {
		return fmt.Errorf("failed to build transaction flow: %w", err)
	}
	defer orchestrator.Close()

	result, err := orchestrator.Begin(ctx, currentUser(), descriptor)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if !result.IsValid {
		printValidationErrors(result)
		return fmt.Errorf("transaction rejected")
	}

	if !skipConfirm {
		prompter := cli.NewPrompter(os.Stdin, os.Stdout)
		confirmed, err := prompter.ConfirmTransaction(ctx, descriptor, orchestrator.Snapshot().Fees)
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !confirmed {
			_ = orchestrator.Cancel()
			fmt.Println("Transaction canceled.")
			return nil
		}
	}

	updates, unsubscribe := orchestrator.Subscribe()
	defer unsubscribe()

	if err := orchestrator.Confirm(ctx); err != nil {
		return fmt.Errorf("failed to submit transaction: %w", err)
	}

	return watchFlow(ctx, orchestrator, updates)
}

// watchFlow renders confirmation progress until the flow settles.
func watchFlow(ctx context.Context, orchestrator *flow.Orchestrator, updates <-chan flow.Snapshot) error {
	var bar *progressbar.ProgressBar

	render := func(snap flow.Snapshot) {
		if snap.State != model.FlowPendingBlockchain || snap.RequiredConfirmations == 0 {
			return
		}
		if bar == nil {
			bar = progressbar.NewOptions(snap.RequiredConfirmations,
				progressbar.OptionSetWriter(os.Stdout),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Waiting for confirmations...[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		if err := bar.Set(snap.Confirmations); err != nil {
			slog.Debug("progress bar update failed", "error", err)
		}
	}

	for {
		snap := orchestrator.Snapshot()
		switch snap.State {
		case model.FlowCompleted:
			if bar != nil {
				_ = bar.Finish()
			}
			printCompletion(snap)
			return nil
		case model.FlowFailed:
			fmt.Println(cli.FormatError(snap.Error))
			return fmt.Errorf("transaction failed")
		}

		select {
		case <-ctx.Done():
			_ = orchestrator.Cancel()
			return ctx.Err()
		case update, ok := <-updates:
			if ok {
				render(update)
			}
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func printCompletion(snap flow.Snapshot) {
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction completed · %s", snap.TxID)))
	if snap.Warning != "" {
		fmt.Println(cli.FormatWarning(snap.Warning))
	}
	if snap.ExplorerLink != "" {
		fmt.Printf("Explorer: %s\n", snap.ExplorerLink)
	}
}

func printValidationErrors(result *validation.Result) {
	for field, message := range result.Errors {
		fmt.Println(cli.FormatError(fmt.Sprintf("%s: %s", field, message)))
	}
}
