// Package middleware contains the HTTP middleware of the delivery layer.
package middleware

import (
	"log/slog"
	"net/http"

	deliverycontext "inkwell/internal/delivery/context"
	"inkwell/internal/delivery/http/response"
	domainerrors "inkwell/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ErrorMiddleware translates errors bubbling out of handlers into the
// uniform response envelope. Domain errors keep their HTTP code and business
// code; anything unrecognized becomes a 500 without leaking internals.
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new centralized error handler.
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{logger: logger}
}

// HandleHTTPError is installed as echo's HTTPErrorHandler.
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	log := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			log.Error("Request failed", slog.String("errorCode", appErr.ErrorCode()), slog.Any("error", err))
		} else {
			log.Warn("Request rejected", slog.String("errorCode", appErr.ErrorCode()), slog.Any("error", err))
		}

		if writeErr := response.Fail(c, appErr.HTTPCode(), appErr.Message(), appErr.ErrorCode(), appErr.Details()); writeErr != nil {
			log.Error("Failed to write error response", slog.Any("error", writeErr))
		}

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		log.Warn("Request rejected", slog.Int("status", httpErr.Code), slog.Any("error", err))

		if writeErr := response.Fail(c, httpErr.Code, message, http.StatusText(httpErr.Code), ""); writeErr != nil {
			log.Error("Failed to write error response", slog.Any("error", writeErr))
		}

		return
	}

	log.Error("Unhandled error", slog.Any("error", err))

	fallback := domainerrors.ErrInternalError
	if writeErr := response.Fail(c, fallback.HTTPCode(), fallback.Message(), fallback.ErrorCode(), ""); writeErr != nil {
		log.Error("Failed to write error response", slog.Any("error", writeErr))
	}
}
