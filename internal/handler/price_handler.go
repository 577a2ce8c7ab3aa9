package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"price-service/internal/apperror"
	"price-service/internal/dto"
	"price-service/internal/middleware"
	"price-service/internal/service"
	"price-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type PriceHandler struct {
	prices *service.PriceService
}

func NewPriceHandler(prices *service.PriceService) *PriceHandler {
	return &PriceHandler{prices: prices}
}

// SubmitPrice handles a single price update
func (h *PriceHandler) SubmitPrice(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var in dto.PriceInput
	if err := decodeObject(c, &in); err != nil {
		return err
	}

	record, err := h.prices.SubmitPrice(c.Request().Context(), *id, in)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Price updated",
		zap.String("product_id", record.ProductID),
		zap.String("location", record.Location),
		zap.String("price", record.Price.StringFixed(2)))

	return c.JSON(http.StatusOK, dto.NewPriceView(record))
}

// SubmitBatch handles a batch of price updates. Item failures do not fail
// the request.
func (h *PriceHandler) SubmitBatch(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req dto.BatchRequest
	if err := decodeObject(c, &req); err != nil {
		return err
	}
	raw := bytes.TrimSpace(req.Prices)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apperror.New(apperror.InvalidArgument, "prices is required")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return apperror.New(apperror.InvalidArgument, "prices must be an array")
	}

	res, err := h.prices.SubmitBatch(c.Request().Context(), *id, items)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Price batch processed",
		zap.Int("items", len(items)),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed))

	return c.JSON(http.StatusOK, res)
}

// ListProductPrices returns the prices of one product visible to the caller
func (h *PriceHandler) ListProductPrices(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	list, err := h.prices.ProductPrices(c.Request().Context(), *id, c.Param("productId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func identity(c echo.Context) (*service.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, apperror.New(apperror.Unauthorized, "authentication required")
	}
	return id, nil
}

// decodeObject reads a single JSON object body into v.
func decodeObject(c echo.Context, v interface{}) error {
	err := dto.Decode(c.Request().Body, v, "request body")
	if err == nil {
		return nil
	}
	// body limit exceeded while streaming
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	if apperror.KindOf(err) == apperror.InvalidArgument {
		return err
	}
	return apperror.Wrap(apperror.InvalidArgument, "request body could not be read", err)
}
