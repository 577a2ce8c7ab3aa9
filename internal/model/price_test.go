package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStockStatusValid(t *testing.T) {
	for _, s := range []StockStatus{InStock, OutOfStock, LimitedStock} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []StockStatus{"", "sold", "IN_STOCK"} {
		assert.False(t, s.Valid(), s)
	}
}
