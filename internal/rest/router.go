package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/miradorstack/churn-explainer/internal/metrics"
)

// NewEcho builds the HTTP server with every route registered.
func NewEcho(handler *PredictionHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(observeLatency)
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/healthz", handler.Health)
	SetupRoutes(e.Group("/api/v1"), handler)
	return e
}

// SetupRoutes registers the prediction API under g.
func SetupRoutes(g *echo.Group, handler *PredictionHandler) {
	g.GET("/customers", handler.ListCustomers)
	g.GET("/customers/:id", handler.GetCustomer)
	g.GET("/models", handler.ListModels)
	g.POST("/predictions", handler.Predict)
	g.POST("/predictions/inspect", handler.Inspect)
}

// observeLatency records handler latency by route pattern so path ids stay out of labels.
func observeLatency(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		code := c.Response().Status
		var httpErr *echo.HTTPError
		if err != nil && errors.As(err, &httpErr) {
			code = httpErr.Code
		}
		metrics.ObserveHTTPRequest(c.Path(), c.Request().Method, code, time.Since(start))
		return err
	}
}
