package handlers

import (
	"net/http"

	"github.com/TridentTech8969/ASA/internal/services"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SyncStatus reports the state of the background synchronizer.
type SyncStatus interface {
	IsRunning() bool
	LastResult() (services.SyncResult, bool)
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db   *gorm.DB
	sync SyncStatus
}

// NewHealthHandler creates a new HealthHandler. sync is nil when mailbox
// sync is disabled.
func NewHealthHandler(db *gorm.DB, sync SyncStatus) *HealthHandler {
	return &HealthHandler{db: db, sync: sync}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Status   string               `json:"status"`
	Reason   string               `json:"reason,omitempty"`
	Sync     string               `json:"sync"`
	LastSync *services.SyncResult `json:"lastSync,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	checks := make(map[string]string)
	status := "healthy"

	if h.pingDB() != nil {
		checks["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}
	checks["sync"] = h.syncState()

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: checks,
	})
}

// Ready handles GET /ready. The service is ready once the database answers;
// a failing mailbox is reported but does not make it unready.
func (h *HealthHandler) Ready(c echo.Context) error {
	resp := ReadyResponse{Status: "ready", Sync: h.syncState()}
	if h.sync != nil {
		if last, ok := h.sync.LastResult(); ok {
			resp.LastSync = &last
		}
	}

	if err := h.pingDB(); err != nil {
		resp.Status = "not ready"
		resp.Reason = "database ping failed"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) pingDB() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (h *HealthHandler) syncState() string {
	switch {
	case h.sync == nil:
		return "disabled"
	case h.sync.IsRunning():
		return "running"
	default:
		return "stopped"
	}
}
