package service

import (
	"context"
	"encoding/base64"
	"errors"

	"price-service/internal/apperror"
	"price-service/internal/dto"
	"price-service/internal/model"
	"price-service/internal/repository"
)

const (
	DefaultProductLimit = 100
	MaxProductLimit     = 1000
)

// ListProductsInput is a catalog page request. Cursor is the opaque value of
// a previous page's NextCursor.
type ListProductsInput struct {
	Limit    int
	Cursor   string
	Category string
	Barcode  string
}

// CatalogService serves the read-only product catalog.
type CatalogService struct {
	products repository.ProductRepository
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products}
}

// ListProducts returns one page of products ordered by id.
func (s *CatalogService) ListProducts(ctx context.Context, in ListProductsInput) (*dto.ProductList, error) {
	if in.Limit < 1 || in.Limit > MaxProductLimit {
		return nil, apperror.Newf(apperror.InvalidArgument, "limit must be between 1 and %d", MaxProductLimit)
	}

	after, err := decodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}

	// one extra row tells whether another page exists
	products, err := s.products.List(ctx, repository.ProductFilter{
		AfterID:  after,
		Limit:    in.Limit + 1,
		Category: in.Category,
		Barcode:  in.Barcode,
	})
	if err != nil {
		return nil, storeError("list products", err)
	}

	if products == nil {
		products = []model.Product{}
	}
	page := &dto.ProductList{Products: products}
	if len(products) > in.Limit {
		page.Products = products[:in.Limit]
		page.NextCursor = encodeCursor(page.Products[in.Limit-1].ID)
	}
	return page, nil
}

// GetProduct returns a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Newf(apperror.NotFound, "product %s not found", id)
		}
		return nil, storeError("get product", err)
	}
	return p, nil
}

// Seed inserts or refreshes catalog products.
func (s *CatalogService) Seed(ctx context.Context, products []model.Product) error {
	for i, p := range products {
		if p.ID == "" || p.Name == "" {
			return apperror.Newf(apperror.InvalidArgument, "product %d: id and name are required", i)
		}
	}
	if err := s.products.Upsert(ctx, products); err != nil {
		return storeError("seed products", err)
	}
	return nil
}

func encodeCursor(lastID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(lastID))
}

func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || len(b) == 0 {
		return "", apperror.New(apperror.InvalidArgument, "invalid cursor")
	}
	return string(b), nil
}
