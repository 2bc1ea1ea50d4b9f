package storage

import (
	"context"
	"testing"
	"time"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveTransaction_RoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	record := &model.TransactionRecord{
		ID:               "txn-launch-1",
		UserID:           "user-1",
		Type:             model.TypeStartStrategy,
		Status:           model.RecordCompleted,
		Amount:           1007.901,
		InvestmentAmount: 1000,
		FeeTotal:         7.901,
		Asset:            "USDC",
		Chain:            model.ChainSOL,
		PaymentMethod:    model.MethodDiBoaSWallet,
		TxHash:           "5UfDu3",
		ExplorerLink:     "https://solscan.io/tx/5UfDu3",
		Description:      "Emergency fund strategy",
		CreatedAt:        time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
	}

	require.NoError(t, store.SaveTransaction(ctx, record))

	got, err := store.GetTransactionByID(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.Type, got.Type)
	assert.Equal(t, record.Status, got.Status)
	assert.InDelta(t, record.Amount, got.Amount, 1e-9)
	assert.InDelta(t, record.InvestmentAmount, got.InvestmentAmount, 1e-9)
	assert.InDelta(t, record.FeeTotal, got.FeeTotal, 1e-9)
	assert.Equal(t, record.Chain, got.Chain)
	assert.Equal(t, record.ExplorerLink, got.ExplorerLink)
	assert.NotEmpty(t, got.Hash, "hash should be generated on save")
}

func TestSaveTransaction_DuplicateRejected(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	record := createTestRecord(1)
	require.NoError(t, store.SaveTransaction(ctx, record))

	err := store.SaveTransaction(ctx, record)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestSaveTransaction_FailedRecordMustBeZeroAmount(t *testing.T) {
	store := createTestStorage(t)

	record := createTestRecord(1)
	record.Status = model.RecordFailed
	record.Amount = 50

	err := store.SaveTransaction(context.Background(), record)
	require.Error(t, err, "failed records with non-zero amounts must be rejected")
}

func TestGetTransactions_Filtering(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.SaveTransaction(ctx, createTestRecord(i)))
	}
	sell := createTestRecord(6)
	sell.Type = model.TypeSell
	require.NoError(t, store.SaveTransaction(ctx, sell))

	t.Run("newest first", func(t *testing.T) {
		records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, records, 6)
		assert.Equal(t, "txn-006", records[0].ID)
	})

	t.Run("by type", func(t *testing.T) {
		records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{
			Type: model.TypeSell,
		})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, sell.ID, records[0].ID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{
			Limit:  2,
			Offset: 1,
		})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "txn-005", records[0].ID)
	})

	t.Run("date range", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 14, 30, 0, 0, time.UTC)
		records, err := store.GetTransactions(ctx, "user-1", service.TransactionFilter{
			StartDate: &start,
		})
		require.NoError(t, err)
		require.Len(t, records, 4)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		records, err := store.GetTransactions(ctx, "user-2", service.TransactionFilter{})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	store := createTestStorage(t)

	_, err := store.GetTransactionByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
