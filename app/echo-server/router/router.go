package router

import (
	serverMetrics "adserver/app/echo-server/metrics"
	"adserver/internal/middleware"
	"adserver/internal/rest"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetPredictRoutes(e *echo.Echo, handler *rest.PredictHandler) {
	e.POST("/predict", handler.Predict, serverMetrics.Instrument("predict"))
	e.POST("/predict/explain", handler.Explain, serverMetrics.Instrument("explain"))
	e.GET("/diagnostics/:key", handler.Diagnostics)
}

func SetAdminRoutes(e *echo.Echo, handler *rest.AdminHandler, jwtSecret string) {
	admin := e.Group("/admin", middleware.AuthMiddleware(jwtSecret), middleware.AdminOnly())

	admin.GET("/experiments/:version/:adId", handler.GetExperiment)
	admin.PUT("/experiments/:version/:adId", handler.PutExperiment)
	admin.GET("/scores/:version/:adId", handler.GetScores)
	admin.PUT("/scores/:version/:adId", handler.PutScores)
	admin.GET("/versions/:version/ad-ids", handler.ListAdIDs)
	admin.PUT("/experiment/base", handler.UpdateBaseVersion)
}

func SetMetricsRoutes(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
