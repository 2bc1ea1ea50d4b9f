package main

import (
	"fmt"

	"github.com/diboas/diboas-go/internal/bank"
	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/config"
	"github.com/spf13/cobra"
)

func bankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Link and inspect external bank accounts",
		Long: `Link external bank accounts for the bank_account payment method.

Requires Plaid credentials, either in the config file under bank.* or
via the PLAID_CLIENT_ID / PLAID_SECRET environment variables.`,
	}

	link := &cobra.Command{
		Use:   "link",
		Short: "Create a link token to connect a new bank account",
		RunE:  runBankLink,
	}

	exchange := &cobra.Command{
		Use:   "exchange <public-token>",
		Short: "Exchange a public token for a permanent access token",
		Args:  cobra.ExactArgs(1),
		RunE:  runBankExchange,
	}

	accounts := &cobra.Command{
		Use:   "accounts <access-token>",
		Short: "List the accounts behind a linked bank connection",
		Args:  cobra.ExactArgs(1),
		RunE:  runBankAccounts,
	}

	cmd.AddCommand(link, exchange, accounts)
	return cmd
}

func bankClient() (*bank.Client, error) {
	cfg, err := config.LoadBankConfig()
	if err != nil {
		return nil, fmt.Errorf("bank provider not configured: %w", err)
	}
	return bank.NewClient(*cfg)
}

func runBankLink(cmd *cobra.Command, _ []string) error {
	client, err := bankClient()
	if err != nil {
		return err
	}

	token, err := client.CreateLinkToken(cmd.Context(), currentUser())
	if err != nil {
		return fmt.Errorf("failed to create link token: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Link token created"))
	fmt.Printf("Token: %s\n", token)
	fmt.Println("Open the diBoaS app and paste this token to finish linking.")
	return nil
}

func runBankExchange(cmd *cobra.Command, args []string) error {
	client, err := bankClient()
	if err != nil {
		return err
	}

	accessToken, err := client.ExchangePublicToken(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to exchange public token: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Bank account linked"))
	fmt.Printf("Access token: %s\n", accessToken)
	fmt.Println("Store this token securely; it is needed to query accounts.")
	return nil
}

func runBankAccounts(cmd *cobra.Command, args []string) error {
	client, err := bankClient()
	if err != nil {
		return err
	}

	accounts, err := client.GetAccounts(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts found for this connection.")
		return nil
	}

	fmt.Println(cli.FormatTitle("Linked bank accounts"))
	for _, account := range accounts {
		fmt.Printf("  %s · %s ···%s  %s %s\n",
			account.InstitutionName,
			account.Name,
			account.Mask,
			cli.FormatMoney(account.AvailableBalance),
			account.Currency)
	}
	return nil
}
