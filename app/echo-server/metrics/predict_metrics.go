package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PredictDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adserver_predict_latency_seconds",
		Help:    "Latency of the predict endpoints",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	PredictTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adserver_predict_requests_total",
		Help: "Total predict requests served, by route and HTTP status",
	}, []string{"route", "status"})
)

func Init() {
	prometheus.MustRegister(PredictDuration, PredictTotal)
}

// Instrument records latency and status of every request under route.
func Instrument(route string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			PredictDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			PredictTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
