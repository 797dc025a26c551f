// internal/api/server.go
package api

import (
	"context"
	"net/http"
	"time"

	"bloodlink/internal/common/config"
	"bloodlink/internal/common/errors"
	"bloodlink/internal/common/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP surface: notification submission and status, the
// hospital directory, the stock summary, plus health and metrics.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger logger.Logger
}

func NewServer(cfg config.ServerConfig, h *Handler, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log))

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api", requireUser)
	api.POST("/notify-hospitals", h.NotifyHospitals)
	api.GET("/notification-status/:job_id", h.NotificationStatus)
	api.GET("/nearby-hospitals", h.NearbyHospitals)
	api.GET("/hospitals/search", h.SearchHospitals)
	api.GET("/blood-stock", h.BloodStockSummary)

	return &Server{echo: e, cfg: cfg, logger: log}
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server starting", map[string]interface{}{
		"address": s.cfg.Address(),
	})
	err := s.echo.Start(s.cfg.Address())
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// requireUser resolves the caller identity from the X-User-ID header set by
// the authenticating gateway.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get("X-User-ID")
		if userID == "" {
			return writeError(c, errors.NewValidationError(errors.ErrCodeUnauthorized, "Authentication required"))
		}
		c.Set("userID", userID)
		return next(c)
	}
}

func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			log.Info("http request", map[string]interface{}{
				"method":    c.Request().Method,
				"path":      c.Request().URL.Path,
				"status":    c.Response().Status,
				"latencyMs": time.Since(start).Milliseconds(),
				"requestId": c.Response().Header().Get(echo.HeaderXRequestID),
			})
			return err
		}
	}
}

// writeError renders the uniform error body {error, code} with the HTTP
// status mapped from the error code.
func writeError(c echo.Context, stdErr *errors.StandardError) error {
	body := map[string]interface{}{
		"error": stdErr.Message,
		"code":  stdErr.Code,
	}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	return c.JSON(errors.HTTPStatus(stdErr.Code), body)
}
