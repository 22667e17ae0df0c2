package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// SessionCounter reports the number of live review sessions
type SessionCounter interface {
	Count() int
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db          *gorm.DB
	sessions    SessionCounter
	mailEnabled bool
}

// NewHealthHandler creates a new HealthHandler. sessions may be nil.
func NewHealthHandler(db *gorm.DB, sessions SessionCounter, mailEnabled bool) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions, mailEnabled: mailEnabled}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string            `json:"status"`
	Services       map[string]string `json:"services"`
	ActiveSessions int               `json:"active_sessions"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := make(map[string]string)
	status := "healthy"

	// Check database connection
	sqlDB, err := h.db.DB()
	if err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else if err := sqlDB.PingContext(c.Request().Context()); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	// Test sends are optional and never make the service unhealthy
	if h.mailEnabled {
		services["mail"] = "enabled"
	} else {
		services["mail"] = "disabled"
	}

	active := 0
	if h.sessions != nil {
		active = h.sessions.Count()
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:         status,
		Services:       services,
		ActiveSessions: active,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	// Check database connection
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database connection failed",
		})
	}

	if err := sqlDB.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}
