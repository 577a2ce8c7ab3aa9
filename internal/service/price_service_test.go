package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"price-service/internal/apperror"
	"price-service/internal/dto"
	"price-service/internal/model"
	"price-service/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func rawItems(t *testing.T, items ...interface{}) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, json.RawMessage(s))
			continue
		}
		b, err := json.Marshal(it)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestSubmitPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.provision(t, "carrefour", false)

	rec, err := f.prices.SubmitPrice(ctx, *id, dto.PriceInput{
		ProductID: "prod_123",
		Price:     price("60"),
		Location:  "Westlands",
		Metadata:  map[string]interface{}{"promo": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "60.00", rec.Price.StringFixed(2))
	assert.Equal(t, model.InStock, rec.StockStatus, "stock status defaults to in_stock")
	assert.Equal(t, id.SupermarketID, rec.SupermarketID)
	assert.Empty(t, rec.SandboxKeyID)
	assert.False(t, rec.UpdatedAt.IsZero())
	assert.NotEmpty(t, rec.ID)

	list, err := f.prices.ProductPrices(ctx, *id, "prod_123")
	require.NoError(t, err)
	require.Len(t, list.Prices, 1)
	got := list.Prices[0]
	assert.Equal(t, json.Number("60.00"), got.Price)
	assert.Equal(t, "KES", got.Currency)
	assert.Equal(t, "Westlands", got.Location)
	assert.Equal(t, true, got.Metadata["promo"])
	assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt))
}

func TestSubmitPriceValidation(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	manyKeys := make(map[string]interface{})
	for i := 0; i < 33; i++ {
		manyKeys[fmt.Sprintf("k%d", i)] = i
	}

	tests := []struct {
		name    string
		in      dto.PriceInput
		message string
	}{
		{"missing product", dto.PriceInput{Price: price("1")}, "productId is required"},
		{"long product id", dto.PriceInput{ProductID: strings.Repeat("p", 65), Price: price("1")}, "productId must be at most 64 characters"},
		{"missing price", dto.PriceInput{ProductID: "prod_123"}, "price is required"},
		{"negative price", dto.PriceInput{ProductID: "prod_123", Price: price("-1")}, "price must not be negative"},
		{"too precise", dto.PriceInput{ProductID: "prod_123", Price: price("1.005")}, "price must have at most 2 decimal places"},
		{"too large", dto.PriceInput{ProductID: "prod_123", Price: price("10000000.01")}, "price must not exceed 10000000"},
		{"bad stock status", dto.PriceInput{ProductID: "prod_123", Price: price("1"), StockStatus: "sold"}, "stockStatus must be one of: in_stock, out_of_stock, limited_stock"},
		{"long location", dto.PriceInput{ProductID: "prod_123", Price: price("1"), Location: strings.Repeat("x", 121)}, "location must be at most 120 characters"},
		{"metadata keys", dto.PriceInput{ProductID: "prod_123", Price: price("1"), Metadata: manyKeys}, "metadata must have at most 32 keys"},
		{"metadata size", dto.PriceInput{ProductID: "prod_123", Price: price("1"), Metadata: map[string]interface{}{"note": strings.Repeat("x", 5000)}}, "metadata must be at most 4096 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.prices.SubmitPrice(context.Background(), *id, tt.in)
			var e *apperror.Error
			require.True(t, errors.As(err, &e), "got %v", err)
			assert.Equal(t, apperror.InvalidArgument, e.Kind)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestSubmitPriceAcceptsBoundaries(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	for _, p := range []string{"0", "0.01", "12.50", "12.500", "10000000"} {
		_, err := f.prices.SubmitPrice(context.Background(), *id, dto.PriceInput{ProductID: "prod_123", Price: price(p)})
		assert.NoError(t, err, p)
	}
	for _, st := range []model.StockStatus{model.InStock, model.OutOfStock, model.LimitedStock} {
		_, err := f.prices.SubmitPrice(context.Background(), *id, dto.PriceInput{ProductID: "prod_123", Price: price("1"), StockStatus: st})
		assert.NoError(t, err, st)
	}
}

func TestSubmitPriceUnknownProduct(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	_, err := f.prices.SubmitPrice(context.Background(), *id, dto.PriceInput{ProductID: "prod_999", Price: price("10")})
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
}

func TestSubmitPriceReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.provision(t, "carrefour", false)

	_, err := f.prices.SubmitPrice(ctx, *id, dto.PriceInput{ProductID: "prod_123", Price: price("60")})
	require.NoError(t, err)
	_, err = f.prices.SubmitPrice(ctx, *id, dto.PriceInput{ProductID: "prod_123", Price: price("55.50"), StockStatus: model.LimitedStock})
	require.NoError(t, err)

	list, err := f.prices.ProductPrices(ctx, *id, "prod_123")
	require.NoError(t, err)
	require.Len(t, list.Prices, 1)
	assert.Equal(t, json.Number("55.50"), list.Prices[0].Price)
	assert.Equal(t, model.LimitedStock, list.Prices[0].StockStatus)
}

func TestSubmitBatchPartialSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.provision(t, "carrefour", false)

	res, err := f.prices.SubmitBatch(ctx, *id, rawItems(t,
		map[string]interface{}{"productId": "prod_123", "price": 60},
		map[string]interface{}{"productId": "prod_999", "price": 10},
		map[string]interface{}{"productId": "prod_456", "price": -1},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, apperror.NotFound, res.Errors[0].Reason)
	assert.Equal(t, 2, res.Errors[1].Index)
	assert.Equal(t, apperror.InvalidArgument, res.Errors[1].Reason)

	list, err := f.prices.ProductPrices(ctx, *id, "prod_123")
	require.NoError(t, err)
	require.Len(t, list.Prices, 1)
	assert.Equal(t, json.Number("60.00"), list.Prices[0].Price)
}

func TestSubmitBatchMalformedItems(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	res, err := f.prices.SubmitBatch(context.Background(), *id, rawItems(t,
		`"oops"`,
		`{"productId":"prod_123","price":"abc"}`,
		`[1,2]`,
		`{"productId":"prod_456","price":"12.50"}`,
		`null`,
	))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 4, res.Failed)
	indexes := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		assert.Equal(t, apperror.InvalidArgument, e.Reason)
		indexes = append(indexes, e.Index)
	}
	assert.Equal(t, []int{0, 1, 2, 4}, indexes)
}

func TestSubmitBatchSizeLimits(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)
	ctx := context.Background()

	item := map[string]interface{}{"productId": "prod_123", "price": 1}
	items := func(n int) []json.RawMessage {
		all := make([]interface{}, n)
		for i := range all {
			all[i] = item
		}
		return rawItems(t, all...)
	}

	_, err := f.prices.SubmitBatch(ctx, *id, nil)
	assert.Equal(t, apperror.InvalidArgument, apperror.KindOf(err))

	_, err = f.prices.SubmitBatch(ctx, *id, items(101))
	assert.Equal(t, apperror.InvalidArgument, apperror.KindOf(err))

	res, err := f.prices.SubmitBatch(ctx, *id, items(100))
	require.NoError(t, err)
	assert.Equal(t, 100, res.Successful)
	assert.Empty(t, res.Errors)
}

// Every batch accounts for each item exactly once and reports errors in
// index order, whatever the mix of outcomes.
func TestSubmitBatchAccounting(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	products := []string{"prod_123", "prod_456", "prod_789", "prod_999"}
	for n := 1; n <= 100; n += 9 {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var all []interface{}
			wantFailed := 0
			for i := 0; i < n; i++ {
				p := products[(i*7+n)%len(products)]
				amount := (i*13+n)%50 - 5
				if p == "prod_999" || amount < 0 {
					wantFailed++
				}
				all = append(all, map[string]interface{}{
					"productId": p,
					"price":     amount,
					"location":  fmt.Sprintf("branch-%d", i%3),
				})
			}

			res, err := f.prices.SubmitBatch(context.Background(), *id, rawItems(t, all...))
			require.NoError(t, err)
			assert.Equal(t, n, res.Successful+res.Failed)
			assert.Equal(t, wantFailed, res.Failed)
			assert.Len(t, res.Errors, res.Failed)
			for i := 1; i < len(res.Errors); i++ {
				assert.Less(t, res.Errors[i-1].Index, res.Errors[i].Index)
			}
		})
	}
}

func TestSubmitBatchDuplicateKeysLastWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, _ := f.provision(t, "carrefour", false)

	var all []interface{}
	for i := 1; i <= 20; i++ {
		all = append(all, map[string]interface{}{"productId": "prod_123", "price": i})
	}
	res, err := f.prices.SubmitBatch(ctx, *id, rawItems(t, all...))
	require.NoError(t, err)
	assert.Equal(t, 20, res.Successful)

	list, err := f.prices.ProductPrices(ctx, *id, "prod_123")
	require.NoError(t, err)
	require.Len(t, list.Prices, 1)
	assert.Equal(t, json.Number("20.00"), list.Prices[0].Price)
}

func TestDemoWritesAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	live, _ := f.provision(t, "carrefour", false)
	demo, _ := f.provision(t, "sandbox", true)
	otherDemo, _ := f.provision(t, "sandbox", true)

	_, err := f.prices.SubmitPrice(ctx, *live, dto.PriceInput{ProductID: "prod_123", Price: price("60")})
	require.NoError(t, err)
	rec, err := f.prices.SubmitPrice(ctx, *demo, dto.PriceInput{ProductID: "prod_123", Price: price("999")})
	require.NoError(t, err)
	assert.Equal(t, demo.KeyID, rec.SandboxKeyID)

	liveView, err := f.prices.ProductPrices(ctx, *live, "prod_123")
	require.NoError(t, err)
	require.Len(t, liveView.Prices, 1)
	assert.Equal(t, json.Number("60.00"), liveView.Prices[0].Price)
	assert.False(t, liveView.Prices[0].Sandbox)

	demoView, err := f.prices.ProductPrices(ctx, *demo, "prod_123")
	require.NoError(t, err)
	require.Len(t, demoView.Prices, 1)
	assert.Equal(t, json.Number("999.00"), demoView.Prices[0].Price)
	assert.True(t, demoView.Prices[0].Sandbox)

	otherView, err := f.prices.ProductPrices(ctx, *otherDemo, "prod_123")
	require.NoError(t, err)
	assert.Empty(t, otherView.Prices)
}

func TestProductPricesUnknownProduct(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	_, err := f.prices.ProductPrices(context.Background(), *id, "prod_999")
	assert.Equal(t, apperror.NotFound, apperror.KindOf(err))
}

func TestSubmitBatchStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	f.store.SetUnavailable(errors.New("connection reset"))
	_, err := f.prices.SubmitBatch(context.Background(), *id, rawItems(t,
		map[string]interface{}{"productId": "prod_123", "price": 60},
	))
	assert.Equal(t, apperror.ServiceUnavailable, apperror.KindOf(err))
}

// failingPrices fails every upsert after the first n.
type failingPrices struct {
	repository.PriceRepository
	n     int32
	calls atomic.Int32
}

func (p *failingPrices) Upsert(ctx context.Context, r *model.PriceRecord) error {
	if p.calls.Add(1) > p.n {
		return errors.New("write timeout")
	}
	return p.PriceRepository.Upsert(ctx, r)
}

func TestSubmitBatchAbortsOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	id, _ := f.provision(t, "carrefour", false)

	prices := NewPriceService(f.store, &failingPrices{PriceRepository: f.store.Prices(), n: 2},
		PriceOptions{MaxBatchSize: 100, Concurrency: 3}, nil)

	var all []interface{}
	for i := 0; i < 30; i++ {
		all = append(all, map[string]interface{}{"productId": "prod_456", "price": 5, "location": fmt.Sprintf("b%d", i)})
	}
	res, err := prices.SubmitBatch(context.Background(), *id, rawItems(t, all...))
	assert.Nil(t, res)
	assert.Equal(t, apperror.ServiceUnavailable, apperror.KindOf(err))
}
