package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"price-service/internal/model"
	"price-service/pkg/apikey"
	"price-service/pkg/database"
	metrics "price-service/prometheus"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewProductRepository creates a postgres-backed ProductRepository
func NewProductRepository(db *gorm.DB, m *metrics.Metrics) ProductRepository {
	return &productRepository{db: db, metrics: m}
}

func (r *productRepository) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	defer r.metrics.TrackStoreOperation("product_list")(time.Now())

	q := r.db.WithContext(ctx).Order("id ASC")
	if f.AfterID != "" {
		q = q.Where("id > ?", f.AfterID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Barcode != "" {
		q = q.Where("barcode = ?", f.Barcode)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var products []model.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	defer r.metrics.TrackStoreOperation("product_get")(time.Now())

	var product model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return &product, nil
}

func (r *productRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	defer r.metrics.TrackStoreOperation("product_exists")(time.Now())

	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var existing []string
	if err := r.db.WithContext(ctx).Model(&model.Product{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, fmt.Errorf("check product ids: %w", err)
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

func (r *productRepository) Upsert(ctx context.Context, products []model.Product) error {
	defer r.metrics.TrackStoreOperation("product_upsert")(time.Now())

	if len(products) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "barcode", "updated_at"}),
	}).Create(&products).Error
	if err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	return nil
}

type accountRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewAccountRepository creates a postgres-backed AccountRepository
func NewAccountRepository(db *gorm.DB, m *metrics.Metrics) AccountRepository {
	return &accountRepository{db: db, metrics: m}
}

func (r *accountRepository) CreateSupermarket(ctx context.Context, s *model.Supermarket) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrConflict
		}
		return fmt.Errorf("create supermarket: %w", err)
	}
	return nil
}

func (r *accountRepository) GetSupermarketBySlug(ctx context.Context, slug string) (*model.Supermarket, error) {
	var s model.Supermarket
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get supermarket %s: %w", slug, err)
	}
	return &s, nil
}

func (r *accountRepository) CreateKey(ctx context.Context, key *model.APIKey) error {
	if err := r.db.WithContext(ctx).Omit("Supermarket").Create(key).Error; err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (r *accountRepository) ActiveKeys(ctx context.Context, slug string, mode apikey.Mode) ([]model.APIKey, error) {
	defer r.metrics.TrackStoreOperation("key_lookup")(time.Now())

	var keys []model.APIKey
	err := r.db.WithContext(ctx).
		Preload("Supermarket").
		Where("slug = ? AND mode = ? AND revoked = ?", slug, mode, false).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("lookup api keys: %w", err)
	}
	return keys, nil
}

func (r *accountRepository) RevokeKey(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("id = ? AND revoked = ?", id, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_at": now})
	if result.Error != nil {
		return fmt.Errorf("revoke api key %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type priceRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

// NewPriceRepository creates a postgres-backed PriceRepository
func NewPriceRepository(db *gorm.DB, m *metrics.Metrics) PriceRepository {
	return &priceRepository{db: db, metrics: m}
}

func (r *priceRepository) Upsert(ctx context.Context, record *model.PriceRecord) error {
	defer r.metrics.TrackStoreOperation("price_upsert")(time.Now())

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "product_id"},
			{Name: "supermarket_id"},
			{Name: "location"},
			{Name: "sandbox_key_id"},
		},
		// last write wins by server timestamp
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "price_records.updated_at <= excluded.updated_at"},
		}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "stock_status", "metadata", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("upsert price: %w", err)
	}

	// the row id is the original one when the insert hit the conflict path
	stored, err := r.Get(ctx, record.Key())
	if err != nil {
		return err
	}
	*record = *stored
	return nil
}

func (r *priceRepository) Get(ctx context.Context, key model.PriceKey) (*model.PriceRecord, error) {
	defer r.metrics.TrackStoreOperation("price_get")(time.Now())

	var record model.PriceRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND supermarket_id = ? AND location = ? AND sandbox_key_id = ?",
			key.ProductID, key.SupermarketID, key.Location, key.SandboxKeyID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get price: %w", err)
	}
	return &record, nil
}

func (r *priceRepository) ListByProduct(ctx context.Context, productID string, scope model.Scope) ([]model.PriceRecord, error) {
	defer r.metrics.TrackStoreOperation("price_list")(time.Now())

	var records []model.PriceRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND sandbox_key_id = ?", productID, scope.SandboxKeyID).
		Order("price ASC, supermarket_id ASC, location ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list prices for %s: %w", productID, err)
	}
	return records, nil
}

type gormPinger struct {
	db *gorm.DB
}

// NewPinger wraps the database handle as a Pinger
func NewPinger(db *gorm.DB) Pinger {
	return &gormPinger{db: db}
}

func (p *gormPinger) Ping(ctx context.Context) error {
	return database.Ping(ctx, p.db)
}
