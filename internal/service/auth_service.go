package service

import (
	"context"
	"errors"

	"price-service/internal/apperror"
	"price-service/internal/model"
	"price-service/internal/repository"
	"price-service/pkg/apikey"
	metrics "price-service/prometheus"
)

// Identity is the authenticated caller of a partner request.
type Identity struct {
	SupermarketID string
	KeyID         string
	Mode          apikey.Mode
	IsDemo        bool
}

// Scope returns the price records the identity reads and writes. Demo
// identities are confined to their own key's sandbox.
func (i Identity) Scope() model.Scope {
	if i.IsDemo {
		return model.Scope{SandboxKeyID: i.KeyID}
	}
	return model.Live
}

// ModeLabel names the identity's mode for metrics and logs.
func (i Identity) ModeLabel() string {
	if i.IsDemo {
		return string(apikey.ModeDemo)
	}
	return string(apikey.ModeLive)
}

// AuthService resolves API keys to identities. Verified keys are served from
// keys until they expire or are revoked.
type AuthService struct {
	accounts repository.AccountRepository
	keys     *KeyCache
	metrics  *metrics.Metrics
}

func NewAuthService(accounts repository.AccountRepository, keys *KeyCache, m *metrics.Metrics) *AuthService {
	return &AuthService{accounts: accounts, keys: keys, metrics: m}
}

// Authenticate resolves a raw API key. Malformed, unknown and revoked keys
// all yield the same Unauthorized error.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Identity, error) {
	key, err := apikey.Parse(raw)
	if err != nil {
		s.metrics.RecordAuthFailure("malformed")
		return nil, apperror.Wrap(apperror.Unauthorized, "invalid API key", err)
	}
	if id, ok := s.keys.Get(raw); ok {
		return id, nil
	}

	candidates, err := s.accounts.ActiveKeys(ctx, key.Slug, key.Mode)
	if err != nil {
		s.metrics.RecordAuthFailure("store")
		return nil, apperror.Wrap(apperror.ServiceUnavailable, "authentication is temporarily unavailable", err)
	}

	for _, k := range candidates {
		if !apikey.CompareSecret(k.SecretHash, key.Secret) {
			continue
		}
		id := Identity{
			SupermarketID: k.SupermarketID,
			KeyID:         k.ID,
			Mode:          k.Mode,
			IsDemo:        k.Mode == apikey.ModeDemo || k.Supermarket.IsDemo,
		}
		s.keys.Put(raw, id)
		return &id, nil
	}

	s.metrics.RecordAuthFailure("unknown")
	return nil, apperror.New(apperror.Unauthorized, "invalid API key")
}

// AccountService provisions supermarkets and their keys. It is driven by the
// operations CLI, never by partner requests.
type AccountService struct {
	accounts   repository.AccountRepository
	bcryptCost int
	keys       *KeyCache
}

// NewAccountService creates the service. keys is the cache shared with the
// AuthService of the same process, or nil.
func NewAccountService(accounts repository.AccountRepository, bcryptCost int, keys *KeyCache) *AccountService {
	return &AccountService{accounts: accounts, bcryptCost: bcryptCost, keys: keys}
}

// ProvisionInput describes a supermarket to create or reuse.
type ProvisionInput struct {
	Name string
	Slug string
	Demo bool
}

// Provisioned is the result of Provision. Key is shown once and never stored
// in plain form.
type Provisioned struct {
	Supermarket *model.Supermarket
	KeyID       string
	Key         apikey.Key
}

// Provision creates the supermarket if its slug is new and issues a key for
// it. Demo accounts only ever receive demo keys.
func (s *AccountService) Provision(ctx context.Context, in ProvisionInput) (*Provisioned, error) {
	if !apikey.ValidSlug(in.Slug) {
		return nil, apperror.Newf(apperror.InvalidArgument, "invalid slug %q", in.Slug)
	}

	sm, err := s.accounts.GetSupermarketBySlug(ctx, in.Slug)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if in.Name == "" {
			return nil, apperror.New(apperror.InvalidArgument, "name is required for a new supermarket")
		}
		sm = &model.Supermarket{Name: in.Name, Slug: in.Slug, IsDemo: in.Demo}
		if err := s.accounts.CreateSupermarket(ctx, sm); err != nil {
			return nil, storeError("create supermarket", err)
		}
	case err != nil:
		return nil, storeError("load supermarket", err)
	}

	mode := apikey.ModeLive
	if in.Demo || sm.IsDemo {
		mode = apikey.ModeDemo
	}

	key, err := apikey.Generate(mode, sm.Slug)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "generate key", err)
	}
	hash, err := apikey.HashSecret(key.Secret, s.bcryptCost)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "hash key", err)
	}

	record := &model.APIKey{
		SupermarketID: sm.ID,
		Slug:          sm.Slug,
		Mode:          mode,
		SecretHash:    hash,
	}
	if err := s.accounts.CreateKey(ctx, record); err != nil {
		return nil, storeError("create key", err)
	}
	return &Provisioned{Supermarket: sm, KeyID: record.ID, Key: key}, nil
}

// Revoke disables a key. Within this process it stops authenticating at
// once; other processes drop it when their cache entry expires.
func (s *AccountService) Revoke(ctx context.Context, keyID string) error {
	err := s.accounts.RevokeKey(ctx, keyID)
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		s.keys.Invalidate(keyID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.Newf(apperror.NotFound, "key %s not found or already revoked", keyID)
		}
		return storeError("revoke key", err)
	}
	return nil
}

// storeError maps a repository failure onto the client-facing kinds.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.Wrap(apperror.NotFound, op+": not found", err)
	case errors.Is(err, repository.ErrConflict):
		return apperror.Wrap(apperror.InvalidArgument, op+": already exists", err)
	case errors.Is(err, context.Canceled):
		return apperror.Wrap(apperror.ServiceUnavailable, "request cancelled", err)
	default:
		return apperror.Wrap(apperror.ServiceUnavailable, "storage is temporarily unavailable", err)
	}
}
