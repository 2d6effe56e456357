package middleware

import (
	"log/slog"
	"time"

	"inkwell/config"
	deliverycontext "inkwell/internal/delivery/context"

	"github.com/labstack/echo/v4"
)

// LoggerMiddleware logs each request with its latency and status. The access
// log is debug-gated so production deployments only pay for it when chasing a
// problem.
type LoggerMiddleware struct {
	logger *slog.Logger
	debug  bool
}

// NewLoggerMiddleware creates a new request logging middleware.
func NewLoggerMiddleware(cfg *config.Config, logger *slog.Logger) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger,
		debug:  cfg.Env.Debug,
	}
}

// Handle is the echo middleware function.
func (m *LoggerMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !m.debug {
			return next(c)
		}

		start := time.Now()
		err := next(c)
		latency := time.Since(start)

		log := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)
		attrs := []any{
			slog.String("method", c.Request().Method),
			slog.String("uri", c.Request().RequestURI),
			slog.Int("status", c.Response().Status),
			slog.Duration("latency", latency),
			slog.String("remote_ip", c.RealIP()),
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
		}

		log.Debug("Request handled", attrs...)

		return err
	}
}
