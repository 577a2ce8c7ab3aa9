package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"price-service/internal/apperror"
	"price-service/internal/dto"
	"price-service/internal/model"
	"price-service/internal/repository"
	metrics "price-service/prometheus"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// PriceOptions bounds batch ingestion.
type PriceOptions struct {
	MaxBatchSize int
	Concurrency  int
}

// PriceService validates and stores partner price updates.
type PriceService struct {
	products    repository.ProductRepository
	prices      repository.PriceRepository
	validate    *validator.Validate
	maxBatch    int
	concurrency int
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewPriceService(products repository.ProductRepository, prices repository.PriceRepository, opts PriceOptions, m *metrics.Metrics) *PriceService {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 100
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &PriceService{
		products:    products,
		prices:      prices,
		validate:    newValidator(),
		maxBatch:    opts.MaxBatchSize,
		concurrency: opts.Concurrency,
		metrics:     m,
		now:         time.Now,
	}
}

// SubmitPrice validates and upserts one price update and returns the stored
// record.
func (s *PriceService) SubmitPrice(ctx context.Context, id Identity, in dto.PriceInput) (*model.PriceRecord, error) {
	if err := s.checkPrice(&in); err != nil {
		s.metrics.RecordPriceItems("single", "invalid", id.ModeLabel(), 1)
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.RecordPriceItems("single", "unknown_product", id.ModeLabel(), 1)
			return nil, apperror.Newf(apperror.NotFound, "product %s not found", in.ProductID)
		}
		return nil, storeError("get product", err)
	}

	record := s.newRecord(id, &in)
	if err := s.prices.Upsert(ctx, record); err != nil {
		return nil, storeError("upsert price", err)
	}
	s.metrics.RecordPriceItems("single", "accepted", id.ModeLabel(), 1)
	return record, nil
}

// SubmitBatch applies up to the configured number of price updates. Items
// fail individually; a storage failure fails the whole request, leaving
// already applied items in place.
func (s *PriceService) SubmitBatch(ctx context.Context, id Identity, items []json.RawMessage) (*dto.BatchResult, error) {
	switch {
	case len(items) == 0:
		return nil, apperror.New(apperror.InvalidArgument, "prices must contain at least one item")
	case len(items) > s.maxBatch:
		return nil, apperror.Newf(apperror.InvalidArgument, "prices must contain at most %d items, got %d", s.maxBatch, len(items))
	}
	s.metrics.RecordBatchSize(len(items))

	failures := make([]*dto.ItemError, len(items))
	records := make([]*model.PriceRecord, len(items))
	var productIDs []string
	seen := make(map[string]bool)

	for i, raw := range items {
		var in dto.PriceInput
		if err := dto.Decode(bytes.NewReader(raw), &in, "item"); err != nil {
			failures[i] = itemError(i, err)
			continue
		}
		if err := s.checkPrice(&in); err != nil {
			failures[i] = itemError(i, err)
			continue
		}
		records[i] = s.newRecord(id, &in)
		if !seen[in.ProductID] {
			seen[in.ProductID] = true
			productIDs = append(productIDs, in.ProductID)
		}
	}

	if len(productIDs) > 0 {
		known, err := s.products.ExistingIDs(ctx, productIDs)
		if err != nil {
			return nil, storeError("check products", err)
		}
		for i, r := range records {
			if r != nil && !known[r.ProductID] {
				failures[i] = &dto.ItemError{Index: i, Reason: apperror.NotFound, Message: "product " + r.ProductID + " not found"}
				records[i] = nil
			}
		}
	}

	if err := s.apply(ctx, records); err != nil {
		return nil, storeError("apply batch", err)
	}

	result := &dto.BatchResult{Errors: make([]dto.ItemError, 0)}
	for i := range items {
		if failures[i] != nil {
			result.Failed++
			result.Errors = append(result.Errors, *failures[i])
			continue
		}
		result.Successful++
	}

	mode := id.ModeLabel()
	s.metrics.RecordPriceItems("batch", "accepted", mode, result.Successful)
	s.metrics.RecordPriceItems("batch", "rejected", mode, result.Failed)
	return result, nil
}

// apply upserts the non-nil records. Records sharing a key run in input
// order on one worker so the last of them wins.
func (s *PriceService) apply(ctx context.Context, records []*model.PriceRecord) error {
	groups := make(map[model.PriceKey][]*model.PriceRecord)
	var order []model.PriceKey
	for _, r := range records {
		if r == nil {
			continue
		}
		k := r.Key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, k := range order {
		group := groups[k]
		g.Go(func() error {
			for _, r := range group {
				r.UpdatedAt = s.timestamp()
				if err := s.prices.Upsert(gctx, r); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// ProductPrices lists the records for a product visible to the identity.
func (s *PriceService) ProductPrices(ctx context.Context, id Identity, productID string) (*dto.PriceList, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.Newf(apperror.NotFound, "product %s not found", productID)
		}
		return nil, storeError("get product", err)
	}

	records, err := s.prices.ListByProduct(ctx, productID, id.Scope())
	if err != nil {
		return nil, storeError("list prices", err)
	}

	list := &dto.PriceList{ProductID: productID, Prices: make([]dto.PriceView, 0, len(records))}
	for i := range records {
		list.Prices = append(list.Prices, dto.NewPriceView(&records[i]))
	}
	return list, nil
}

func (s *PriceService) newRecord(id Identity, in *dto.PriceInput) *model.PriceRecord {
	r := &model.PriceRecord{
		ProductID:     in.ProductID,
		SupermarketID: id.SupermarketID,
		Location:      in.Location,
		SandboxKeyID:  id.Scope().SandboxKeyID,
		Price:         in.Price.Round(maxPriceDecimals),
		StockStatus:   in.StockStatus,
		UpdatedAt:     s.timestamp(),
	}
	if in.Metadata != nil {
		r.Metadata = datatypes.JSONMap(in.Metadata)
	}
	return r
}

// timestamp is truncated to what postgres stores so reads compare equal.
func (s *PriceService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func itemError(index int, err error) *dto.ItemError {
	var e *apperror.Error
	if errors.As(err, &e) {
		return &dto.ItemError{Index: index, Reason: e.Kind, Message: e.Message}
	}
	return &dto.ItemError{Index: index, Reason: apperror.InvalidArgument, Message: "invalid price update"}
}
