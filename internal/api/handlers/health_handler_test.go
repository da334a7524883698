package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/TridentTech8969/ASA/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type stubSync struct {
	running bool
	last    *services.SyncResult
}

func (s stubSync) IsRunning() bool { return s.running }

func (s stubSync) LastResult() (services.SyncResult, bool) {
	if s.last == nil {
		return services.SyncResult{}, false
	}
	return *s.last, true
}

func setupHealthTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// GORM pings during initialization
	mock.ExpectPing()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       db,
		DriverName: "postgres",
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func serveHealth(t *testing.T, fn echo.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, fn(e.NewContext(req, rec)))
	return rec
}

func TestHealthHandler_Health_ReturnsOKWhenHealthy(t *testing.T) {
	gormDB, mock := setupHealthTestDB(t)
	mock.ExpectPing()

	handler := NewHealthHandler(gormDB, stubSync{running: true})
	rec := serveHealth(t, handler.Health, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"sync":"running"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthHandler_Health_ReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	gormDB, mock := setupHealthTestDB(t)
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	handler := NewHealthHandler(gormDB, nil)
	rec := serveHealth(t, handler.Health, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"database":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"sync":"disabled"`)
}

func TestHealthHandler_Ready_ReportsLastSync(t *testing.T) {
	gormDB, mock := setupHealthTestDB(t)
	mock.ExpectPing()

	last := &services.SyncResult{
		StartedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Fetched:   3,
		New:       1,
	}
	handler := NewHealthHandler(gormDB, stubSync{running: true, last: last})
	rec := serveHealth(t, handler.Ready, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "running", resp.Sync)
	require.NotNil(t, resp.LastSync)
	assert.Equal(t, 1, resp.LastSync.New)
}

func TestHealthHandler_Ready_StoppedSyncStillReady(t *testing.T) {
	gormDB, mock := setupHealthTestDB(t)
	mock.ExpectPing()

	handler := NewHealthHandler(gormDB, stubSync{running: false})
	rec := serveHealth(t, handler.Ready, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sync":"stopped"`)
	assert.NotContains(t, rec.Body.String(), "lastSync")
}

func TestHealthHandler_Ready_DatabaseDown(t *testing.T) {
	gormDB, mock := setupHealthTestDB(t)
	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	handler := NewHealthHandler(gormDB, nil)
	rec := serveHealth(t, handler.Ready, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"not ready"`)
	assert.Contains(t, rec.Body.String(), "database ping failed")
	assert.NotContains(t, rec.Body.String(), "connection is already closed")
}
