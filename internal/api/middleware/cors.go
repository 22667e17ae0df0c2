package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultDevOrigin is allowed when no origins are configured
const DefaultDevOrigin = "http://localhost:8080"

// ParseOrigins splits a comma-separated ALLOWED_ORIGINS value. Wildcards
// are dropped in production.
func ParseOrigins(allowedOrigins string, production bool) []string {
	if allowedOrigins == "" {
		return []string{DefaultDevOrigin}
	}

	origins := make([]string, 0)
	for _, origin := range strings.Split(allowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if production && origin == "*" {
			continue
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = []string{DefaultDevOrigin}
	}
	return origins
}

// SecureCORS returns CORS middleware restricted to the given origins
func SecureCORS(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
