package rest

import (
	"context"
	"net/http"

	"adserver/business/dynconfig"
	"adserver/domain"
	"adserver/pkg/logger"
	"adserver/pkg/trace"

	"github.com/labstack/echo/v4"
)

type (
	PredictHandler struct {
		predictionService PredictionService
		config            ConfigInspector
	}

	PredictionService interface {
		Predict(ctx context.Context, req domain.PredictRequest) (domain.PredictResponse, error)
		Explain(ctx context.Context, req domain.PredictRequest) (domain.ExplainResponse, error)
	}

	ConfigInspector interface {
		Lookup(key string) (dynconfig.Cell, bool)
	}
)

func NewPredictHandler(svc PredictionService, config ConfigInspector) *PredictHandler {
	return &PredictHandler{
		predictionService: svc,
		config:            config,
	}
}

// POST /predict
// Validation failures are reported in the body with HTTP 200.
func (h *PredictHandler) Predict(c echo.Context) error {
	var req domain.PredictRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	resp, err := h.predictionService.Predict(c.Request().Context(), req)
	if err != nil {
		logger.Warn("predict aborted",
			"trace_id", trace.FromContext(c.Request().Context()),
			"error", err,
		)
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// POST /predict/explain
func (h *PredictHandler) Explain(c echo.Context) error {
	var req domain.PredictRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	resp, err := h.predictionService.Explain(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// GET /diagnostics/:key
func (h *PredictHandler) Diagnostics(c echo.Context) error {
	key := c.Param("key")

	cell, ok := h.config.Lookup(key)
	if !ok {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "config key not registered"})
	}

	return c.JSON(http.StatusOK, dynconfig.Mapping(cell))
}
