// Package middleware provides HTTP middleware for the inbox API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/TridentTech8969/ASA/internal/logger"
	"github.com/labstack/echo/v4"
)

// HeaderAPIKey carries the API key on dashboard requests.
const HeaderAPIKey = "X-API-Key"

// APIKeyAuth validates the API key from the X-API-Key header, or from an
// "Authorization: Bearer" header. An empty apiKey disables the check.
// Uses constant-time comparison to prevent timing attacks.
func APIKeyAuth(apiKey string, sec *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && sec != nil {
		sec.GetLogger().Warn("API_KEY not set - API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			token := c.Request().Header.Get(HeaderAPIKey)
			if token == "" {
				token = strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "))
			}

			if token == "" {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), c.Request().URL.Path, "missing_key")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "missing API key")
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				if sec != nil {
					sec.AuthFailure(c.RealIP(), c.Request().URL.Path, "invalid_key")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
			}

			return next(c)
		}
	}
}
