package storage

import (
	"context"
	"testing"
	"time"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStrategy(id string) *model.Strategy {
	return &model.Strategy{
		ID:             id,
		UserID:         "user-1",
		Name:           "Emergency fund",
		TemplateID:     "sol-marinade-staking",
		Protocol:       "Marinade",
		Chain:          model.ChainSOL,
		Status:         model.StrategyRunning,
		InvestedAmount: 1000,
		CurrentValue:   1012.40,
		APY:            0.064,
		CreatedAt:      time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaveStrategy_RoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	strategy := testStrategy("strat-1")
	require.NoError(t, store.SaveStrategy(ctx, strategy))

	got, err := store.GetStrategy(ctx, "strat-1")
	require.NoError(t, err)
	assert.Equal(t, strategy.Name, got.Name)
	assert.Equal(t, model.StrategyRunning, got.Status)
	assert.InDelta(t, 0.064, got.APY, 1e-9)
	assert.Nil(t, got.StoppedAt)
}

func TestGetStrategiesByUser(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := testStrategy("strat-1")
	second := testStrategy("strat-2")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	require.NoError(t, store.SaveStrategy(ctx, first))
	require.NoError(t, store.SaveStrategy(ctx, second))

	strategies, err := store.GetStrategiesByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, "strat-2", strategies[0].ID, "newest first")

	strategies, err = store.GetStrategiesByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, strategies)
}

func TestUpdateStrategyStatus(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStrategy(ctx, testStrategy("strat-1")))

	require.NoError(t, store.UpdateStrategyStatus(ctx, "strat-1", model.StrategyStopping))
	got, err := store.GetStrategy(ctx, "strat-1")
	require.NoError(t, err)
	assert.Equal(t, model.StrategyStopping, got.Status)
	assert.Nil(t, got.StoppedAt)

	require.NoError(t, store.UpdateStrategyStatus(ctx, "strat-1", model.StrategyStopped))
	got, err = store.GetStrategy(ctx, "strat-1")
	require.NoError(t, err)
	assert.Equal(t, model.StrategyStopped, got.Status)
	assert.NotNil(t, got.StoppedAt, "stopping stamps stopped_at")
}

func TestUpdateStrategyStatus_NotFound(t *testing.T) {
	store := createTestStorage(t)

	err := store.UpdateStrategyStatus(context.Background(), "missing", model.StrategyStopped)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
