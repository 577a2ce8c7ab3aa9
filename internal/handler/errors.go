package handler

import (
	"errors"
	"fmt"
	"net/http"

	"price-service/internal/apperror"
	"price-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders every error, including echo's own routing and
// middleware errors, as the JSON error envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		err = fromHTTPError(he)
	}

	status, body := apperror.BodyOf(err)
	log := logger.FromContext(c)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		log.Error("Failed to write error response", zap.Error(err))
	}
}

func fromHTTPError(he *echo.HTTPError) error {
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		msg = m
	}

	switch he.Code {
	case http.StatusNotFound:
		return apperror.Wrap(apperror.NotFound, "route not found", he)
	case http.StatusMethodNotAllowed:
		return apperror.Wrap(apperror.InvalidArgument, "method not allowed", he)
	case http.StatusRequestEntityTooLarge:
		return apperror.Wrap(apperror.InvalidArgument, "request body too large", he)
	case http.StatusUnauthorized:
		return apperror.Wrap(apperror.Unauthorized, msg, he)
	case http.StatusTooManyRequests:
		return apperror.Wrap(apperror.RateLimited, msg, he)
	case http.StatusServiceUnavailable:
		return apperror.Wrap(apperror.ServiceUnavailable, msg, he)
	}
	if he.Code >= 400 && he.Code < 500 {
		return apperror.Wrap(apperror.InvalidArgument, msg, he)
	}
	return apperror.Wrap(apperror.Internal, "internal server error", fmt.Errorf("http %d: %w", he.Code, he))
}
