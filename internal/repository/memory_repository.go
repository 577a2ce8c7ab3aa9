package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"price-service/internal/model"
	"price-service/pkg/apikey"

	"gorm.io/datatypes"
)

// MemoryStore implements every repository interface in process memory. It
// backs STORE_BACKEND=memory and the handler/service tests.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[string]model.Product
	supermarkets map[string]model.Supermarket
	keys         map[string]model.APIKey
	prices       map[model.PriceKey]model.PriceRecord

	// returned by every call while set, to simulate an outage
	pingErr error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[string]model.Product),
		supermarkets: make(map[string]model.Supermarket),
		keys:         make(map[string]model.APIKey),
		prices:       make(map[model.PriceKey]model.PriceRecord),
	}
}

// SetUnavailable makes every call fail with err until called again with nil.
func (s *MemoryStore) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

func (s *MemoryStore) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	products := make([]model.Product, 0)
	for _, id := range ids {
		if f.AfterID != "" && strings.Compare(id, f.AfterID) <= 0 {
			continue
		}
		p := s.products[id]
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Barcode != "" && p.Barcode != f.Barcode {
			continue
		}
		products = append(products, p)
		if f.Limit > 0 && len(products) == f.Limit {
			break
		}
	}
	return products, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	found := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.products[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, products []model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingErr != nil {
		return s.pingErr
	}

	now := time.Now().UTC()
	for _, p := range products {
		if existing, ok := s.products[p.ID]; ok {
			p.CreatedAt = existing.CreatedAt
		} else {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		s.products[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) CreateSupermarket(ctx context.Context, sm *model.Supermarket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingErr != nil {
		return s.pingErr
	}

	for _, existing := range s.supermarkets {
		if existing.Slug == sm.Slug {
			return ErrConflict
		}
	}
	if sm.ID == "" {
		sm.ID = model.NewID("sm_")
	}
	now := time.Now().UTC()
	sm.CreatedAt, sm.UpdatedAt = now, now
	s.supermarkets[sm.ID] = *sm
	return nil
}

func (s *MemoryStore) GetSupermarketBySlug(ctx context.Context, slug string) (*model.Supermarket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	for _, sm := range s.supermarkets {
		if sm.Slug == slug {
			return &sm, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateKey(ctx context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingErr != nil {
		return s.pingErr
	}

	if key.ID == "" {
		key.ID = model.NewID("key_")
	}
	key.CreatedAt = time.Now().UTC()
	stored := *key
	stored.Supermarket = model.Supermarket{}
	s.keys[key.ID] = stored
	return nil
}

func (s *MemoryStore) ActiveKeys(ctx context.Context, slug string, mode apikey.Mode) ([]model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	keys := make([]model.APIKey, 0, 1)
	for _, k := range s.keys {
		if k.Slug != slug || k.Mode != mode || k.Revoked {
			continue
		}
		k.Supermarket = s.supermarkets[k.SupermarketID]
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *MemoryStore) RevokeKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingErr != nil {
		return s.pingErr
	}

	k, ok := s.keys[id]
	if !ok || k.Revoked {
		return ErrNotFound
	}
	now := time.Now().UTC()
	k.Revoked = true
	k.RevokedAt = &now
	s.keys[id] = k
	return nil
}

// Prices returns the PriceRepository view of the store. ProductRepository
// already owns the Upsert method name on MemoryStore.
func (s *MemoryStore) Prices() PriceRepository {
	return memoryPrices{s}
}

type memoryPrices struct {
	s *MemoryStore
}

func (m memoryPrices) Upsert(ctx context.Context, record *model.PriceRecord) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pingErr != nil {
		return s.pingErr
	}

	key := record.Key()
	existing, ok := s.prices[key]
	if ok {
		record.ID = existing.ID
		if existing.UpdatedAt.After(record.UpdatedAt) {
			*record = cloneRecord(existing)
			return nil
		}
	} else if record.ID == "" {
		record.ID = model.NewID("price_")
	}
	s.prices[key] = cloneRecord(*record)
	return nil
}

func (m memoryPrices) Get(ctx context.Context, key model.PriceKey) (*model.PriceRecord, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	r, ok := s.prices[key]
	if !ok {
		return nil, ErrNotFound
	}
	r = cloneRecord(r)
	return &r, nil
}

func (m memoryPrices) ListByProduct(ctx context.Context, productID string, scope model.Scope) ([]model.PriceRecord, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pingErr != nil {
		return nil, s.pingErr
	}

	records := make([]model.PriceRecord, 0)
	for key, r := range s.prices {
		if key.ProductID == productID && key.SandboxKeyID == scope.SandboxKeyID {
			records = append(records, cloneRecord(r))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Price.Equal(b.Price) {
			return a.Price.LessThan(b.Price)
		}
		if a.SupermarketID != b.SupermarketID {
			return a.SupermarketID < b.SupermarketID
		}
		return a.Location < b.Location
	})
	return records, nil
}

func cloneRecord(r model.PriceRecord) model.PriceRecord {
	if r.Metadata != nil {
		md := make(datatypes.JSONMap, len(r.Metadata))
		for k, v := range r.Metadata {
			md[k] = v
		}
		r.Metadata = md
	}
	return r
}
