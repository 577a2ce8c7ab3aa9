package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const contextKey = "logger"

// FromContext retrieves the request-scoped logger, falling back to the
// process-wide zap logger.
func FromContext(c echo.Context) *zap.Logger {
	if log, ok := c.Get(contextKey).(*zap.Logger); ok {
		return log
	}
	return zap.L()
}

// With adds fields to the request-scoped logger.
func With(c echo.Context, fields ...zap.Field) *zap.Logger {
	log := FromContext(c).With(fields...)
	c.Set(contextKey, log)
	return log
}
