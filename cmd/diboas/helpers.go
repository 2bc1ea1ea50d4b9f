package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/diboas/diboas-go/internal/config"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/diboas/diboas-go/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/diboas/diboas.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// currentUser resolves the acting user ID. The platform is local-first, so
// a single implicit user is the common case.
func currentUser() string {
	if id := viper.GetString("user.id"); id != "" {
		return id
	}
	return "local"
}

// parseAmount parses a positional USD amount argument.
func parseAmount(arg string) (float64, error) {
	amount, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	return amount, nil
}
