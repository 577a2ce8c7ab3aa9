package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxRequestIDLen = 128

// RequestID adds a unique request ID to each request. A caller supplied ID
// is kept when it is reasonably short.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.New().String()
		}

		c.Request().Header.Set(echo.HeaderXRequestID, requestID)
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)
		c.Set("request_id", requestID)

		return next(c)
	}
}
