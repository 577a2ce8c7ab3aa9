package service

import (
	"context"
	"testing"
	"time"

	"price-service/internal/model"
	"price-service/internal/repository"
	"price-service/pkg/apikey"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	store    *repository.MemoryStore
	keys     *KeyCache
	auth     *AuthService
	accounts *AccountService
	catalog  *CatalogService
	prices   *PriceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), []model.Product{
		{ID: "prod_123", Name: "Fresh Milk 500ml", Category: "dairy", Barcode: "6161100110011"},
		{ID: "prod_456", Name: "White Bread 400g", Category: "bakery"},
		{ID: "prod_789", Name: "Sugar 1kg", Category: "pantry"},
	}))

	keys := NewKeyCache(time.Minute, 100)
	return &fixture{
		store:    store,
		keys:     keys,
		auth:     NewAuthService(store, keys, nil),
		accounts: NewAccountService(store, bcrypt.MinCost, keys),
		catalog:  NewCatalogService(store),
		prices:   NewPriceService(store, store.Prices(), PriceOptions{MaxBatchSize: 100, Concurrency: 4}, nil),
	}
}

// provision creates an account and returns the identity its new key
// resolves to along with the key itself.
func (f *fixture) provision(t *testing.T, slug string, demo bool) (*Identity, apikey.Key) {
	t.Helper()
	ctx := context.Background()

	p, err := f.accounts.Provision(ctx, ProvisionInput{Name: slug, Slug: slug, Demo: demo})
	require.NoError(t, err)

	id, err := f.auth.Authenticate(ctx, p.Key.String())
	require.NoError(t, err)
	return id, p.Key
}
