package repository

import (
	"context"
	"errors"

	"price-service/internal/model"
	"price-service/pkg/apikey"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("record already exists")
)

// ProductFilter narrows a catalog listing. Results are ordered by id and
// start strictly after AfterID.
type ProductFilter struct {
	AfterID  string
	Limit    int
	Category string
	Barcode  string
}

// ProductRepository defines catalog data access
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	// ExistingIDs returns the subset of ids that are known products.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, products []model.Product) error
}

// AccountRepository defines supermarket account and API key data access
type AccountRepository interface {
	CreateSupermarket(ctx context.Context, s *model.Supermarket) error
	GetSupermarketBySlug(ctx context.Context, slug string) (*model.Supermarket, error)
	CreateKey(ctx context.Context, key *model.APIKey) error
	// ActiveKeys returns the non-revoked keys for the slug and mode with
	// their Supermarket populated.
	ActiveKeys(ctx context.Context, slug string, mode apikey.Mode) ([]model.APIKey, error)
	RevokeKey(ctx context.Context, id string) error
}

// PriceRepository defines price record data access
type PriceRepository interface {
	// Upsert stores the record under its key. An existing row is replaced
	// unless it carries a newer UpdatedAt.
	Upsert(ctx context.Context, record *model.PriceRecord) error
	Get(ctx context.Context, key model.PriceKey) (*model.PriceRecord, error)
	ListByProduct(ctx context.Context, productID string, scope model.Scope) ([]model.PriceRecord, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
