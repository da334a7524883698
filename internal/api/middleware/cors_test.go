package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serveCORS(origins []string, production bool, method, origin string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(SecureCORS(origins, production))
	e.GET("/test", okHandler)

	req := httptest.NewRequest(method, "/test", nil)
	req.Header.Set(echo.HeaderOrigin, origin)
	if method == http.MethodOptions {
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSecureCORS_AllowedOrigin(t *testing.T) {
	rec := serveCORS([]string{"http://localhost:3000", "https://asa.example.com"}, false, http.MethodGet, "https://asa.example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://asa.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestSecureCORS_DisallowedOrigin(t *testing.T) {
	rec := serveCORS([]string{"http://localhost:3000"}, false, http.MethodGet, "http://malicious.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_PreflightAllowsAPIKeyHeader(t *testing.T) {
	rec := serveCORS([]string{"http://localhost:3000"}, false, http.MethodOptions, "http://localhost:3000")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), HeaderAPIKey)
}

func TestSecureCORS_DefaultOrigin(t *testing.T) {
	rec := serveCORS(nil, false, http.MethodGet, "http://localhost:3000")

	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_ProductionNoWildcard(t *testing.T) {
	rec := serveCORS([]string{"*"}, true, http.MethodGet, "http://anything.example")

	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestSecureCORS_WildcardOutsideProduction(t *testing.T) {
	rec := serveCORS([]string{"*"}, false, http.MethodGet, "http://anything.example")

	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}
