package handler

import (
	"net/http"
	"strconv"

	"price-service/internal/apperror"
	"price-service/internal/service"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts returns a page of the catalog
func (h *ProductHandler) ListProducts(c echo.Context) error {
	limit := service.DefaultProductLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.New(apperror.InvalidArgument, "limit must be an integer")
		}
		limit = n
	}

	page, err := h.catalog.ListProducts(c.Request().Context(), service.ListProductsInput{
		Limit:    limit,
		Cursor:   c.QueryParam("cursor"),
		Category: c.QueryParam("category"),
		Barcode:  c.QueryParam("barcode"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetProduct returns one product by id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	p, err := h.catalog.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
