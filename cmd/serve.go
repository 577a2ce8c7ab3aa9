package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"price-service/internal/catalog"
	"price-service/internal/handler"
	mid "price-service/internal/middleware"
	"price-service/internal/ratelimit"
	"price-service/internal/service"
	"price-service/pkg/cache"
	"price-service/pkg/config"
	metrics "price-service/prometheus"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var seedFile string
	var devKeys bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if devKeys && cfg.Store != "memory" {
				return fmt.Errorf("--dev-keys requires STORE_BACKEND=memory")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, cfg, log, seedFile, devKeys)
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "catalog YAML file to load before serving")
	cmd.Flags().BoolVar(&devKeys, "dev-keys", false, "provision and print a live and a demo key (memory store only)")
	return cmd
}

func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, log *zap.Logger, seedFile string, devKeys bool) error {
	log.Info("Starting "+serviceName, cfg.LogFields()...)

	m := metrics.New(cfg.Metrics.Prefix)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	st, err := openStores(cfg, log, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
		log.Info("Store closed")
	}()

	keys := service.NewKeyCache(cfg.Auth.KeyCacheTTL, cfg.Auth.KeyCacheSize)
	catalogSvc := service.NewCatalogService(st.products)
	if seedFile != "" {
		products, err := catalog.Load(seedFile)
		if err != nil {
			return err
		}
		if err := catalogSvc.Seed(ctx, products); err != nil {
			return err
		}
		log.Info("Catalog seeded", zap.String("file", seedFile), zap.Int("products", len(products)))
	}

	if devKeys {
		accounts := service.NewAccountService(st.accounts, cfg.Auth.BcryptCost, keys)
		for _, demo := range []bool{false, true} {
			p, err := accounts.Provision(ctx, service.ProvisionInput{Name: "Development", Slug: "dev", Demo: demo})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s key: %s\n", p.Key.Mode, p.Key)
		}
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLimiter()

	deps := handler.RouterDeps{
		Handlers: &handler.Handlers{
			Health:   handler.NewHealthHandler(service.NewHealthService(st.pinger, cfg.Server.Version)),
			Products: handler.NewProductHandler(catalogSvc),
			Prices: handler.NewPriceHandler(service.NewPriceService(st.products, st.prices, service.PriceOptions{
				MaxBatchSize: cfg.Ingest.MaxBatchSize,
				Concurrency:  cfg.Ingest.BatchConcurrency,
			}, m)),
		},
		Auth:       service.NewAuthService(st.accounts, keys, m),
		Limiter:    limiter,
		Metrics:    m,
		Logger:     log,
		BodyLimit:  cfg.Server.BodyLimit,
		ClientRate: cfg.Auth.ClientRate,
	}
	if cfg.Auth.ClientRate > 0 {
		deps.ClientStore = mid.NewClientStore(cfg.Auth.ClientRate, cfg.Auth.ClientBurst)
	}
	e := handler.NewRouter(deps)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newLimiter builds the configured rate limiter and returns its cleanup.
func newLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend == "redis" {
		client, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Redis rate limiter connected")
		return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window), func() {
			if err := client.Close(); err != nil {
				log.Error("Failed to close redis client", zap.Error(err))
			}
		}, nil
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	go limiter.Run(ctx, cfg.RateLimit.Window)
	return limiter, func() {}, nil
}
