package main

import (
	"fmt"

	"price-service/internal/repository"
	"price-service/pkg/config"
	"price-service/pkg/database"
	metrics "price-service/prometheus"

	"go.uber.org/zap"
)

// stores bundles the repositories of one backend.
type stores struct {
	products repository.ProductRepository
	accounts repository.AccountRepository
	prices   repository.PriceRepository
	pinger   repository.Pinger
	close    func() error
}

func openStores(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*stores, error) {
	if cfg.Store == "memory" {
		log.Warn("Using in-memory store, data is lost on exit")
		mem := repository.NewMemoryStore()
		return &stores{
			products: mem,
			accounts: mem,
			prices:   mem.Prices(),
			pinger:   mem,
			close:    func() error { return nil },
		}, nil
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &stores{
		products: repository.NewProductRepository(db, m),
		accounts: repository.NewAccountRepository(db, m),
		prices:   repository.NewPriceRepository(db, m),
		pinger:   repository.NewPinger(db),
		close:    func() error { return database.Close(db) },
	}, nil
}

// openPostgresStores is used by the admin commands, which are pointless
// against a process-local store.
func openPostgresStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Store != "postgres" {
		return nil, fmt.Errorf("this command requires STORE_BACKEND=postgres")
	}
	return openStores(cfg, log, nil)
}
