package handler

import (
	"net/http"

	"price-service/internal/service"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	health *service.HealthService
}

func NewHealthHandler(health *service.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Health reports liveness and store reachability. It needs no API key.
func (h *HealthHandler) Health(c echo.Context) error {
	res, err := h.health.Check(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
