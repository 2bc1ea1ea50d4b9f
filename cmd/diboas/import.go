package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/diboas/diboas-go/internal/cli"
	"github.com/diboas/diboas-go/internal/ofx"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank statements from OFX/QFX files",
		Long: `Import add and withdraw history from OFX or QFX files exported
from your bank.

Re-importing the same file is safe: transactions already in the history
are skipped.

Examples:
  # Import single file
  diboas import ~/Downloads/chase_jan_2024.qfx

  # Import everything in a directory
  diboas import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	importer := ofx.NewImporter(store)
	totalImported, totalSkipped := 0, 0

	for _, filePath := range allFiles {
		slog.Info("Processing file", "file", filepath.Base(filePath))

		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			continue
		}

		result, err := importer.Import(ctx, currentUser(), f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to import OFX file", "file", filePath, "error", err)
			continue
		}

		totalImported += result.Imported
		totalSkipped += result.Skipped
		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"imported", result.Imported,
			"skipped", result.Skipped)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Import complete: %d transactions added, %d duplicates skipped", totalImported, totalSkipped)))
	return nil
}
