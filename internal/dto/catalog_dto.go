package dto

import "price-service/internal/model"

// ProductList is one page of the catalog.
type ProductList struct {
	Products   []model.Product `json:"products"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// HealthResponse is the fixed-shape health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
