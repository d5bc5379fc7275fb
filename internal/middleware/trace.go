package middleware

import (
	"adserver/pkg/trace"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Trace puts a trace id in the request context and echoes it in
// X-Request-ID. A client supplied X-Request-ID is kept.
func Trace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			tid := req.Header.Get(echo.HeaderXRequestID)
			if tid == "" {
				tid = uuid.NewString()
			}

			c.Response().Header().Set(echo.HeaderXRequestID, tid)
			c.SetRequest(req.WithContext(trace.WithID(req.Context(), tid)))

			return next(c)
		}
	}
}
