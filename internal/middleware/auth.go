package middleware

import (
	"context"
	"strings"

	"price-service/internal/apperror"
	"price-service/internal/service"
	"price-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const identityKey = "identity"

// Authenticator resolves a raw API key to the calling identity.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*service.Identity, error)
}

// Auth validates the bearer API key and stores the caller's identity on the
// context.
func Auth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				return apperror.New(apperror.Unauthorized, "missing API key")
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				log.Warn("Invalid Authorization header format")
				return apperror.New(apperror.Unauthorized, "invalid authorization format, expected Bearer API key")
			}

			id, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				log.Warn("API key rejected", zap.Error(err))
				return err
			}

			c.Set(identityKey, id)
			logger.With(c,
				zap.String("supermarket_id", id.SupermarketID),
				zap.String("key_id", id.KeyID),
				zap.Bool("demo", id.IsDemo))

			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (*service.Identity, bool) {
	id, ok := c.Get(identityKey).(*service.Identity)
	return id, ok && id != nil
}
