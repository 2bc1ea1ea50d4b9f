package main

import (
	"fmt"
	"os"

	"github.com/diboas/diboas-go/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func resetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the local database",
		Long: `Reset deletes the local database file entirely.

This is a destructive operation: balances, transaction history,
strategies and wizard sessions are all removed.`,
		RunE: runReset,
	}

	cmd.Flags().BoolP("force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runReset(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/diboas/diboas.db"
	}
	dbPath = config.ExpandPath(dbPath)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No database found. Nothing to reset.")
		return nil
	}

	// Confirm with user unless --force is used
	if !force {
		fmt.Printf("This will delete all data in %s.\n", dbPath)
		fmt.Printf("\nAre you sure you want to continue? [y/N]: ")

		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			response = ""
		}
		if response != "y" && response != "Y" {
			fmt.Println("Reset canceled.")
			return nil
		}
	}

	if err := os.Remove(dbPath); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Println("Database deleted. Run 'diboas migrate' to start fresh.")
	return nil
}
