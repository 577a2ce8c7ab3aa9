package middleware

import (
	"math"
	"strconv"

	"price-service/internal/apperror"
	"price-service/internal/ratelimit"
	"price-service/pkg/logger"
	metrics "price-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRetryAfter         = "Retry-After"
)

// RateLimit enforces the per-key quota. It must run after Auth. When the
// limiter itself fails the request is let through.
func RateLimit(limiter ratelimit.Limiter, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return next(c)
			}

			d, err := limiter.Allow(c.Request().Context(), id.KeyID)
			if err != nil {
				logger.FromContext(c).Warn("Rate limiter unavailable, allowing request", zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set(headerRateLimitLimit, strconv.Itoa(d.Limit))
			h.Set(headerRateLimitRemaining, strconv.Itoa(d.Remaining))

			if !d.Allowed {
				retry := int(math.Ceil(d.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				h.Set(headerRetryAfter, strconv.Itoa(retry))
				m.RecordRateLimited()
				logger.FromContext(c).Info("Rate limit exceeded", zap.Int("retry_after_seconds", retry))
				return apperror.Newf(apperror.RateLimited, "rate limit of %d requests exceeded, retry in %d seconds", d.Limit, retry)
			}
			return next(c)
		}
	}
}
