package service

import (
	"context"
	"time"

	"price-service/internal/apperror"
	"price-service/internal/dto"
	"price-service/internal/repository"
)

const pingTimeout = 2 * time.Second

// HealthService reports whether the service can reach its store.
type HealthService struct {
	store   repository.Pinger
	version string
}

func NewHealthService(store repository.Pinger, version string) *HealthService {
	return &HealthService{store: store, version: version}
}

func (s *HealthService) Check(ctx context.Context) (*dto.HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return nil, apperror.Wrap(apperror.ServiceUnavailable, "storage is unreachable", err)
	}
	return &dto.HealthResponse{Status: "ok", Version: s.version}, nil
}
