package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TridentTech8969/ASA/internal/api/handlers"
	"github.com/TridentTech8969/ASA/internal/api/middleware"
	"github.com/TridentTech8969/ASA/internal/api/response"
	apperrors "github.com/TridentTech8969/ASA/internal/errors"
	"github.com/TridentTech8969/ASA/internal/logger"
	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB        *gorm.DB
	Emails    handlers.EmailReader
	Contacts  handlers.ContactSubmitter
	Sync      handlers.SyncStatus // nil when mailbox sync is disabled
	Hub       *websocket.Hub
	Metrics   *metrics.Metrics
	Limiter   *middleware.IPRateLimiter
	Logger    *slog.Logger
	SecLogger *logger.SecurityLogger

	// Security configuration
	APIKey         string   // API key for /api routes (empty = disabled)
	AllowedOrigins []string // Allowed CORS and websocket origins
	Production     bool
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Recover(log))
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))
	if cfg.Limiter != nil {
		e.Use(middleware.RateLimiter(cfg.Limiter, cfg.SecLogger))
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Sync)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	if cfg.Hub != nil {
		e.GET("/hubs/email", handlers.NewWebSocketHandler(cfg.Hub, cfg.AllowedOrigins, log).Connect)
	}

	contactHandler := handlers.NewContactHandler(cfg.Contacts, cfg.SecLogger)
	e.POST("/Home/SendMail", contactHandler.SendMail)

	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.SecLogger))

	emailHandler := handlers.NewEmailHandler(cfg.Emails)
	emails := api.Group("/emails")
	emails.GET("", emailHandler.List)
	emails.GET("/stats", emailHandler.Stats)
	emails.GET("/:id", emailHandler.Get)
	emails.GET("/:id/attachment", emailHandler.Attachment)
	emails.POST("/:id/mark-read", emailHandler.MarkRead)

	return e
}

// errorHandler renders every unhandled error as the standard error envelope.
// Messages of echo.HTTPError come from middleware and are safe to show;
// anything else is logged and replaced by a generic message.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			message := http.StatusText(httpErr.Code)
			if m, ok := httpErr.Message.(string); ok {
				message = m
			}
			writeError(c, log, httpErr.Code, response.ErrorResponse{
				Error: message,
				Code:  codeForStatus(httpErr.Code),
			})
			return
		}

		code := apperrors.GetErrorCode(err)
		status := response.HTTPStatus(code)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				slog.String("path", c.Request().URL.Path),
				slog.Any("error", err))
		}
		writeError(c, log, status, response.ErrorResponse{
			Error: apperrors.PublicMessage(err),
			Code:  code,
		})
	}
}

func writeError(c echo.Context, log *slog.Logger, status int, body response.ErrorResponse) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		log.Warn("failed to write error response", slog.Any("error", err))
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperrors.CodeNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return apperrors.CodeInvalidInput
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	case http.StatusTooManyRequests:
		return apperrors.CodeRateLimited
	default:
		return apperrors.CodeInternalError
	}
}
