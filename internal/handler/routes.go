package handler

import (
	"net/http"

	mid "price-service/internal/middleware"
	"price-service/internal/ratelimit"
	"price-service/pkg/logger"
	metrics "price-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// APIPrefix is the base path of every partner route.
const APIPrefix = "/api/v1"

// Route binds one endpoint. Paths are relative to APIPrefix. Public routes
// skip authentication and rate limiting.
type Route struct {
	Method  string
	Path    string
	Name    string
	Public  bool
	Handler echo.HandlerFunc
}

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Health   *HealthHandler
	Products *ProductHandler
	Prices   *PriceHandler
}

// Routes returns the complete partner route table.
func (h *Handlers) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/health", Name: "health", Public: true, Handler: h.Health.Health},
		{Method: http.MethodGet, Path: "/products", Name: "products.list", Handler: h.Products.ListProducts},
		{Method: http.MethodGet, Path: "/products/:id", Name: "products.get", Handler: h.Products.GetProduct},
		{Method: http.MethodPost, Path: "/prices/single", Name: "prices.single", Handler: h.Prices.SubmitPrice},
		{Method: http.MethodPost, Path: "/prices/batch", Name: "prices.batch", Handler: h.Prices.SubmitBatch},
		{Method: http.MethodGet, Path: "/prices/:productId", Name: "prices.product", Handler: h.Prices.ListProductPrices},
	}
}

// RouterDeps holds everything NewRouter wires together.
type RouterDeps struct {
	Handlers  *Handlers
	Auth      mid.Authenticator
	Limiter   ratelimit.Limiter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	BodyLimit string

	// ClientStore throttles protected requests per client IP at ClientRate
	// requests per second. Nil disables it.
	ClientStore middleware.RateLimiterStore
	ClientRate  float64
}

// NewRouter builds the echo instance serving the route table plus /metrics.
func NewRouter(d RouterDeps) *echo.Echo {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	bodyLimit := d.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(mid.RequestID)
	e.Use(logger.Middleware(log))
	e.Use(d.Metrics.Middleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))

	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	var protected []echo.MiddlewareFunc
	if d.ClientStore != nil {
		protected = append(protected, mid.ClientRateLimit(d.ClientStore, d.ClientRate, d.Metrics))
	}
	protected = append(protected, mid.Auth(d.Auth))
	if d.Limiter != nil {
		protected = append(protected, mid.RateLimit(d.Limiter, d.Metrics))
	}

	api := e.Group(APIPrefix)
	for _, r := range d.Handlers.Routes() {
		var mw []echo.MiddlewareFunc
		if !r.Public {
			mw = protected
		}
		api.Add(r.Method, r.Path, r.Handler, mw...).Name = r.Name
	}
	return e
}
