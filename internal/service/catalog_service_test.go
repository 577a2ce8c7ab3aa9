package service

import (
	"context"
	"errors"
	"testing"

	"price-service/internal/apperror"
	"price-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProductsPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.catalog.Seed(ctx, []model.Product{
		{ID: "prod_100", Name: "Rice 2kg", Category: "pantry"},
		{ID: "prod_200", Name: "Eggs x12", Category: "dairy"},
	}))

	var ids []string
	cursor := ""
	pages := 0
	for {
		page, err := f.catalog.ListProducts(ctx, ListProductsInput{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		pages++
		for _, p := range page.Products {
			ids = append(ids, p.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"prod_100", "prod_123", "prod_200", "prod_456", "prod_789"}, ids)
}

func TestListProductsExactPageHasNoCursor(t *testing.T) {
	f := newFixture(t)

	page, err := f.catalog.ListProducts(context.Background(), ListProductsInput{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Products, 3)
	assert.Empty(t, page.NextCursor)
}

func TestListProductsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.catalog.ListProducts(ctx, ListProductsInput{Limit: 10, Category: "dairy"})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "prod_123", page.Products[0].ID)

	page, err = f.catalog.ListProducts(ctx, ListProductsInput{Limit: 10, Barcode: "0000"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
}

func TestListProductsRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   ListProductsInput
	}{
		{"zero limit", ListProductsInput{Limit: 0}},
		{"limit too large", ListProductsInput{Limit: MaxProductLimit + 1}},
		{"cursor not base64", ListProductsInput{Limit: 10, Cursor: "!!!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.ListProducts(context.Background(), tt.in)
			assert.Equal(t, apperror.InvalidArgument, apperror.KindOf(err))
		})
	}
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.catalog.GetProduct(ctx, "prod_456")
	require.NoError(t, err)
	assert.Equal(t, "White Bread 400g", p.Name)

	_, err = f.catalog.GetProduct(ctx, "prod_999")
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))

	f.store.SetUnavailable(errors.New("down"))
	_, err = f.catalog.GetProduct(ctx, "prod_456")
	assert.Equal(t, apperror.ServiceUnavailable, apperror.KindOf(err))
}

func TestSeedRequiresIDAndName(t *testing.T) {
	f := newFixture(t)
	err := f.catalog.Seed(context.Background(), []model.Product{{ID: "prod_1"}})
	assert.Equal(t, apperror.InvalidArgument, apperror.KindOf(err))
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	health := NewHealthService(f.store, "1.2.3")

	res, err := health.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "1.2.3", res.Version)

	f.store.SetUnavailable(errors.New("down"))
	_, err = health.Check(context.Background())
	assert.Equal(t, apperror.ServiceUnavailable, apperror.KindOf(err))
}
