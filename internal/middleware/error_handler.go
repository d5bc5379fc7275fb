package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"adserver/pkg/logger"
	jsonres "adserver/pkg/response"
	"adserver/pkg/trace"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escape handlers as JSON.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}

	tid := trace.FromContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		logger.Error("Unhandled request error", "trace_id", tid, "path", c.Path(), "error", err)
	} else {
		logger.Debug("Request error", "trace_id", tid, "path", c.Path(), "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, jsonres.Error(errorCode(code), msg, nil))
	}
	if err != nil {
		logger.Error("Failed to write error response", "error", err)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}
