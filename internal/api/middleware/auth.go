// Package middleware provides HTTP middleware for the review server.
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
)

// APIKeyAuth validates the API key from the Authorization header.
// Uses constant-time comparison to prevent timing attacks. An empty
// apiKey disables the check.
func APIKeyAuth(apiKey string, secLog *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && secLog != nil {
		secLog.GetLogger().Warn("API_KEY not set - REST API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()

			// Skip auth for health endpoints
			if strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready") {
				return next(c)
			}

			// Skip if API_KEY not configured (development mode)
			if apiKey == "" {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if secLog != nil {
					secLog.AuthFailure(c.RealIP(), path, "missing_header")
				}
				return echo.NewHTTPError(401, map[string]string{
					"error": "missing authorization header",
					"code":  "UNAUTHORIZED",
				})
			}

			// Extract token from "Bearer <token>" format
			token := strings.TrimPrefix(authHeader, "Bearer ")
			token = strings.TrimSpace(token)

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				if secLog != nil {
					secLog.AuthFailure(c.RealIP(), path, "invalid_key")
				}
				return echo.NewHTTPError(401, map[string]string{
					"error": "invalid API key",
					"code":  "UNAUTHORIZED",
				})
			}

			return next(c)
		}
	}
}
