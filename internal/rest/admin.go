package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"adserver/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	AdminHandler struct {
		validate *validator.Validate
		cache    ExperimentCache
		expRepo  ExperimentRepository
	}

	ExperimentCache interface {
		GetExperimentConfig(ctx context.Context, version string, adID int64) (domain.AdExperimentConfig, bool)
		PutExperimentConfig(ctx context.Context, version string, adID int64, cfg domain.AdExperimentConfig)
		ListKnown(version string) []int64
	}

	ExperimentRepository interface {
		GetActionScores(ctx context.Context, version string, adID int64) (map[string]int64, error)
		SetActionScores(ctx context.Context, version string, adID int64, scores map[string]int64) error
		TrackedAdIDs(ctx context.Context, version string) ([]int64, error)
		UpdateBaseVersion(ctx context.Context, version string) (time.Time, error)
	}

	ExperimentConfigRequest struct {
		ControlGroupID        string  `json:"cg_user" validate:"required,len=1,hexadecimal,lowercase"`
		ExperimentGroupID     string  `json:"eg_user" validate:"required,len=1,hexadecimal,lowercase,nefield=ControlGroupID"`
		ExperimentActionID    string  `json:"eg_action_id" validate:"required"`
		MainActionID          string  `json:"main_action_id" validate:"required"`
		ExperimentActionValue float64 `json:"exp_action_value" validate:"gte=0,lte=1"`
		MainActionValue       float64 `json:"main_action_value" validate:"gte=0,lte=1"`
	}

	ActionScoresRequest struct {
		Scores map[string]int64 `json:"scores" validate:"required,min=1,dive,keys,required,endkeys"`
	}

	BaseVersionRequest struct {
		Version string `json:"version" validate:"required,max=64"`
	}

	VersionAdIDsResponse struct {
		Version   string  `json:"version"`
		Cached    []int64 `json:"cached"`
		Persisted []int64 `json:"persisted"`
	}

	BaseVersionResponse struct {
		Version   string    `json:"version"`
		StartTime time.Time `json:"start_time"`
	}
)

func NewAdminHandler(cache ExperimentCache, expRepo ExperimentRepository) *AdminHandler {
	return &AdminHandler{
		validate: validator.New(),
		cache:    cache,
		expRepo:  expRepo,
	}
}

func versionAndAdID(c echo.Context) (string, int64, bool) {
	version := strings.TrimSpace(c.Param("version"))
	adID, err := strconv.ParseInt(c.Param("adId"), 10, 64)
	if version == "" || err != nil || adID <= 0 {
		return "", 0, false
	}
	return version, adID, true
}

// GET /admin/experiments/:version/:adId
func (h *AdminHandler) GetExperiment(c echo.Context) error {
	version, adID, ok := versionAndAdID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid version or ad id"})
	}

	cfg, found := h.cache.GetExperimentConfig(c.Request().Context(), version, adID)
	if !found {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "experiment config not found"})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(cfg))
}

// PUT /admin/experiments/:version/:adId
func (h *AdminHandler) PutExperiment(c echo.Context) error {
	version, adID, ok := versionAndAdID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid version or ad id"})
	}

	var req ExperimentConfigRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	cfg := domain.AdExperimentConfig{
		AdID:                  adID,
		Version:               version,
		ControlGroupID:        req.ControlGroupID,
		ExperimentGroupID:     req.ExperimentGroupID,
		ExperimentActionID:    req.ExperimentActionID,
		MainActionID:          req.MainActionID,
		ExperimentActionValue: req.ExperimentActionValue,
		MainActionValue:       req.MainActionValue,
	}
	h.cache.PutExperimentConfig(c.Request().Context(), version, adID, cfg)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(cfg))
}

// GET /admin/scores/:version/:adId
func (h *AdminHandler) GetScores(c echo.Context) error {
	version, adID, ok := versionAndAdID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid version or ad id"})
	}

	scores, err := h.expRepo.GetActionScores(c.Request().Context(), version, adID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(scores))
}

// PUT /admin/scores/:version/:adId
func (h *AdminHandler) PutScores(c echo.Context) error {
	version, adID, ok := versionAndAdID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid version or ad id"})
	}

	var req ActionScoresRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.expRepo.SetActionScores(c.Request().Context(), version, adID, req.Scores); err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(req.Scores))
}

// GET /admin/versions/:version/ad-ids
func (h *AdminHandler) ListAdIDs(c echo.Context) error {
	version := strings.TrimSpace(c.Param("version"))
	if version == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "version is required"})
	}

	persisted, err := h.expRepo.TrackedAdIDs(c.Request().Context(), version)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	cached := h.cache.ListKnown(version)
	if cached == nil {
		cached = []int64{}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(VersionAdIDsResponse{
		Version:   version,
		Cached:    cached,
		Persisted: persisted,
	}))
}

// PUT /admin/experiment/base
// The new version is picked up by the next config refresh.
func (h *AdminHandler) UpdateBaseVersion(c echo.Context) error {
	var req BaseVersionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	startTime, err := h.expRepo.UpdateBaseVersion(c.Request().Context(), req.Version)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(BaseVersionResponse{
		Version:   req.Version,
		StartTime: startTime,
	}))
}
