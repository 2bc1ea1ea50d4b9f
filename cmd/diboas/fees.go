package main

import (
	"fmt"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/fees"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/spf13/cobra"
)

func feesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fees <type> <amount>",
		Short: "Quote the fees for a transaction without running it",
		Long: `Quote the full fee breakdown for a proposed transaction.

Examples:
  # Fees for adding $500 by credit card
  diboas fees add 500 --method credit_debit_card

  # Fees for buying $1000 of ETH funded from the wallet
  diboas fees buy 1000 --chain ETH --method diboas_wallet`,
		Args: cobra.ExactArgs(2),
		RunE: runFees,
	}

	cmd.Flags().String("chain", "SOL", "target chain (SOL, ETH, BTC, SUI)")
	cmd.Flags().String("method", "diboas_wallet", "payment method")
	cmd.Flags().String("asset", "USDC", "asset code")

	return cmd
}

func runFees(cmd *cobra.Command, args []string) error {
	txType := model.TransactionType(args[0])
	if !txType.IsValid() {
		return fmt.Errorf("unknown transaction type: %s", args[0])
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	chainFlag, _ := cmd.Flags().GetString("chain")
	methodFlag, _ := cmd.Flags().GetString("method")
	assetFlag, _ := cmd.Flags().GetString("asset")

	chain := model.Chain(chainFlag)
	if !chain.IsValid() {
		return fmt.Errorf("unknown chain: %s", chainFlag)
	}

	quote := fees.NewCalculator().Calculate(model.TransactionDescriptor{
		Type:          txType,
		Amount:        amount,
		Asset:         assetFlag,
		PaymentMethod: model.PaymentMethod(methodFlag),
		Chain:         chain,
	})

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Fee quote · %s %s", args[0], cli.FormatMoney(amount))))
	fmt.Println(cli.RenderFeeBreakdown(quote))
	return nil
}
