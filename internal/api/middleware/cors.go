package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultOrigin = "http://localhost:3000"

// SecureCORS returns CORS middleware limited to the given origins.
// Wildcard origins are dropped in production.
func SecureCORS(origins []string, production bool) echo.MiddlewareFunc {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" && production {
			continue
		}
		allowed = append(allowed, origin)
	}
	if len(allowed) == 0 {
		allowed = []string{defaultOrigin}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowed,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, HeaderAPIKey,
		},
		AllowCredentials: !containsWildcard(allowed),
		MaxAge:           300,
	})
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
