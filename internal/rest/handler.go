// Package rest exposes the prediction service as a JSON API over echo.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/miradorstack/churn-explainer/internal/api"
	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

type (
	PredictionHandler struct {
		validate *validator.Validate
		service  PredictionService
		logger   *slog.Logger
	}

	PredictionService interface {
		RunPrediction(ctx context.Context, req models.PredictionRequest) (models.PredictionResult, error)
		InspectModels(req models.PredictionRequest) (models.InspectionResult, error)
		Customers() []models.CustomerOption
		Customer(id int64) (models.CustomerRecord, error)
		Models() []models.ModelInfo
	}

	ResponseError struct {
		Message string `json:"message"`
	}
)

func NewPredictionHandler(service PredictionService, logger *slog.Logger) *PredictionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionHandler{
		validate: validator.New(),
		service:  service,
		logger:   logger,
	}
}

func (h *PredictionHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK("SERVING"))
}

func (h *PredictionHandler) ListCustomers(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.service.Customers()))
}

func (h *PredictionHandler) GetCustomer(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "customer id must be a positive integer"})
	}
	customer, err := h.service.Customer(id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(customer))
}

func (h *PredictionHandler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.service.Models()))
}

func (h *PredictionHandler) Predict(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return err
	}
	result, err := h.service.RunPrediction(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

func (h *PredictionHandler) Inspect(c echo.Context) error {
	req, err := h.bind(c)
	if err != nil {
		return err
	}
	result, err := h.service.InspectModels(req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// bind decodes and validates a prediction body. Failures are returned as
// 400 echo errors for ErrorHandler to render.
func (h *PredictionHandler) bind(c echo.Context) (models.PredictionRequest, error) {
	var payload api.PredictionPayload
	if err := c.Bind(&payload); err != nil {
		h.logger.Debug("invalid request body", slog.Any("error", err))
		return models.PredictionRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := payload.Validate(h.validate); err != nil {
		return models.PredictionRequest{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return payload.ToDomain(), nil
}

func (h *PredictionHandler) fail(c echo.Context, err error) error {
	code := StatusFromError(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return c.JSON(code, ResponseError{Message: err.Error()})
}

// StatusFromError maps an error kind to an HTTP status.
func StatusFromError(err error) int {
	switch utils.KindOf(err) {
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindInvalidInput:
		return http.StatusBadRequest
	case utils.KindRemoteService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders echo errors in the ResponseError shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}
	_ = c.JSON(code, ResponseError{Message: message})
}
