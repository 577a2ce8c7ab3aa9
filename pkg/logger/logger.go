package logger

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options holds logger configuration
type Options struct {
	Level       string
	Environment string
	ServiceName string
}

// New builds a zap logger. Production gets JSON output, everything else the
// colored development encoder.
func New(opts Options) (*zap.Logger, error) {
	var logConfig zap.Config
	if opts.Environment == "production" {
		logConfig = zap.NewProductionConfig()
		logConfig.EncoderConfig.TimeKey = "timestamp"
		logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	log, err := logConfig.Build(zap.Fields(
		zap.String("service", opts.ServiceName),
		zap.String("environment", opts.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// Middleware returns an Echo middleware that logs HTTP requests and puts a
// request-scoped logger on the context.
func Middleware(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Request().Header.Get(echo.HeaderXRequestID)
			}

			ctxLogger := base.With(zap.String("request_id", requestID))
			c.Set(contextKey, ctxLogger)

			err := next(c)
			if err != nil {
				// resolve the final status before logging
				c.Error(err)
			}

			fields := []zapcore.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}

			// the logger may have been enriched by auth
			log := FromContext(c)
			if c.Response().Status >= 500 {
				log.Error("HTTP request failed", append(fields, zap.Error(err))...)
			} else {
				log.Info("HTTP request completed", fields...)
			}
			return nil
		}
	}
}
