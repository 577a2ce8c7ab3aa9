package dto

import (
	"encoding/json"
	"time"

	"price-service/internal/apperror"
	"price-service/internal/model"

	"github.com/shopspring/decimal"
)

// PriceInput is one price update as submitted by a partner, either alone or
// as an element of a batch.
type PriceInput struct {
	ProductID   string                 `json:"productId" validate:"required,max=64"`
	Price       *decimal.Decimal       `json:"price" validate:"required,gte=0,lte=10000000"`
	Location    string                 `json:"location" validate:"max=120"`
	StockStatus model.StockStatus      `json:"stockStatus" validate:"omitempty,stock_status"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// BatchRequest is the body of a batch update. Prices stays raw so each item
// can fail decoding on its own.
type BatchRequest struct {
	Prices json.RawMessage `json:"prices"`
}

// BatchResult summarizes a batch update.
type BatchResult struct {
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []ItemError `json:"errors"`
}

// ItemError reports why the item at Index was rejected.
type ItemError struct {
	Index   int           `json:"index"`
	Reason  apperror.Kind `json:"reason"`
	Message string        `json:"message"`
}

// PriceView is the client representation of a stored price record.
type PriceView struct {
	ProductID     string                 `json:"productId"`
	SupermarketID string                 `json:"supermarketId"`
	Price         json.Number            `json:"price"`
	Currency      string                 `json:"currency"`
	Location      string                 `json:"location,omitempty"`
	StockStatus   model.StockStatus      `json:"stockStatus"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Sandbox       bool                   `json:"sandbox"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// NewPriceView converts a stored record for output.
func NewPriceView(r *model.PriceRecord) PriceView {
	return PriceView{
		ProductID:     r.ProductID,
		SupermarketID: r.SupermarketID,
		Price:         json.Number(r.Price.StringFixed(2)),
		Currency:      model.Currency,
		Location:      r.Location,
		StockStatus:   r.StockStatus,
		Metadata:      r.Metadata,
		Sandbox:       r.SandboxKeyID != "",
		UpdatedAt:     r.UpdatedAt,
	}
}

// PriceList is the response of a per-product price read.
type PriceList struct {
	ProductID string      `json:"productId"`
	Prices    []PriceView `json:"prices"`
}
