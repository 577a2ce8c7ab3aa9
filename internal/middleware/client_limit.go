package middleware

import (
	"math"
	"strconv"
	"time"

	"price-service/internal/apperror"
	"price-service/pkg/logger"
	metrics "price-service/prometheus"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewClientStore returns an in-memory per-client token bucket refilling at
// perSecond with the given burst.
func NewClientStore(perSecond float64, burst int) *echomw.RateLimiterMemoryStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
}

// ClientRateLimit throttles requests per client IP. It runs before Auth so
// that repeated bad keys are rejected without a bcrypt comparison.
func ClientRateLimit(store echomw.RateLimiterStore, perSecond float64, m *metrics.Metrics) echo.MiddlewareFunc {
	retry := 1
	if perSecond > 0 {
		// one token's refill time, tolerant of float error in 1/rate
		retry = int(math.Max(1, math.Ceil(1/perSecond-1e-9)))
	}

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set(headerRetryAfter, strconv.Itoa(retry))
			m.RecordRateLimited()
			logger.FromContext(c).Warn("Client rate limit exceeded", zap.String("client_ip", identifier))
			return apperror.Newf(apperror.RateLimited, "too many requests from this client, retry in %d seconds", retry)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperror.Wrap(apperror.Unauthorized, "client could not be identified", err)
		},
	})
}
