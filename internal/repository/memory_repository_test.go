package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"price-service/internal/model"
	"price-service/pkg/apikey"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func record(price string, at time.Time, sandbox string) *model.PriceRecord {
	return &model.PriceRecord{
		ProductID:     "prod_123",
		SupermarketID: "sm_1",
		Location:      "Westlands",
		SandboxKeyID:  sandbox,
		Price:         decimal.RequireFromString(price),
		StockStatus:   model.InStock,
		UpdatedAt:     at,
	}
}

func TestMemoryPricesUpsertKeepsNewest(t *testing.T) {
	prices := NewMemoryStore().Prices()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	first := record("60", t0, "")
	require.NoError(t, prices.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := record("55", t0.Add(time.Minute), "")
	require.NoError(t, prices.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert keeps the row identity")

	stale := record("70", t0, "")
	require.NoError(t, prices.Upsert(ctx, stale))
	assert.Equal(t, "55", stale.Price.String(), "an older write is replaced by the stored row")

	got, err := prices.Get(ctx, first.Key())
	require.NoError(t, err)
	assert.Equal(t, "55", got.Price.String())
}

func TestMemoryPricesScope(t *testing.T) {
	prices := NewMemoryStore().Prices()
	ctx := context.Background()
	now := time.Now().UTC()

	live := record("60", now, "")
	live.Metadata = datatypes.JSONMap{"promo": true}
	require.NoError(t, prices.Upsert(ctx, live))
	require.NoError(t, prices.Upsert(ctx, record("999", now, "key_demo")))

	liveRows, err := prices.ListByProduct(ctx, "prod_123", model.Live)
	require.NoError(t, err)
	require.Len(t, liveRows, 1)
	assert.Equal(t, "60", liveRows[0].Price.String())

	// returned rows are copies
	liveRows[0].Metadata["promo"] = false
	again, err := prices.ListByProduct(ctx, "prod_123", model.Live)
	require.NoError(t, err)
	assert.Equal(t, true, again[0].Metadata["promo"])

	demoRows, err := prices.ListByProduct(ctx, "prod_123", model.Scope{SandboxKeyID: "key_demo"})
	require.NoError(t, err)
	require.Len(t, demoRows, 1)
	assert.Equal(t, "999", demoRows[0].Price.String())

	none, err := prices.ListByProduct(ctx, "prod_123", model.Scope{SandboxKeyID: "key_other"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryAccounts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sm := &model.Supermarket{Name: "Carrefour", Slug: "carrefour"}
	require.NoError(t, s.CreateSupermarket(ctx, sm))
	assert.True(t, errors.Is(s.CreateSupermarket(ctx, &model.Supermarket{Slug: "carrefour"}), ErrConflict))

	key := &model.APIKey{SupermarketID: sm.ID, Slug: "carrefour", Mode: apikey.ModeLive, SecretHash: "h"}
	require.NoError(t, s.CreateKey(ctx, key))

	keys, err := s.ActiveKeys(ctx, "carrefour", apikey.ModeLive)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "Carrefour", keys[0].Supermarket.Name)

	keys, err = s.ActiveKeys(ctx, "carrefour", apikey.ModeDemo)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.RevokeKey(ctx, key.ID))
	assert.True(t, errors.Is(s.RevokeKey(ctx, key.ID), ErrNotFound))
	keys, err = s.ActiveKeys(ctx, "carrefour", apikey.ModeLive)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStoreUnavailable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	down := errors.New("down")

	s.SetUnavailable(down)
	assert.ErrorIs(t, s.Ping(ctx), down)
	_, err := s.ExistingIDs(ctx, []string{"prod_1"})
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, s.Prices().Upsert(ctx, record("1", time.Now(), "")), down)

	s.SetUnavailable(nil)
	assert.NoError(t, s.Ping(ctx))
}
