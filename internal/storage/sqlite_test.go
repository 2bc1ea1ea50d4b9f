package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/diboas/diboas-go/internal/model"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err, "failed to create storage")

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx), "failed to migrate")

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Helper function to create test records.
func createTestRecord(i int) *model.TransactionRecord {
	return &model.TransactionRecord{
		ID:            fmt.Sprintf("txn-%03d", i),
		UserID:        "user-1",
		Type:          model.TypeAdd,
		Status:        model.RecordCompleted,
		Amount:        float64(100 + i),
		Asset:         "USDC",
		Chain:         model.ChainSOL,
		PaymentMethod: model.MethodCreditCard,
		CreatedAt:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)

	// Running migrations again is a no-op
	require.NoError(t, store.Migrate(context.Background()))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	require.Error(t, err)
}

func TestBeginTx_CommitsAtomically(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	record := createTestRecord(1)
	require.NoError(t, tx.SaveTransaction(ctx, record))
	require.NoError(t, tx.SaveBalance(ctx, &model.Balance{
		UserID:    "user-1",
		Available: 101,
	}))
	require.NoError(t, tx.Commit())

	got, err := store.GetTransactionByID(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, record.Amount, got.Amount)

	balance, err := store.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 101.0, balance.Available)
}

func TestBeginTx_RollbackDiscardsWrites(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveTransaction(ctx, createTestRecord(2)))
	require.NoError(t, tx.Rollback())

	_, err = store.GetTransactionByID(ctx, "txn-002")
	require.Error(t, err)
}
