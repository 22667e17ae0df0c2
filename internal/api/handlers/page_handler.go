package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/response"
	"github.com/welldanyogia/rampup-email-reviewer/internal/identity"
	"github.com/welldanyogia/rampup-email-reviewer/internal/view"
)

// PageHandler serves the review shell
type PageHandler struct {
	cookies sessions.Store
	logger  *slog.Logger
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(cookies sessions.Store, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{cookies: cookies, logger: logger}
}

// ShellData is the data passed to the shell template
type ShellData struct {
	Title string
}

// Index handles GET /
func (h *PageHandler) Index(c echo.Context) error {
	// The token cookie must be issued before the socket is opened
	if _, err := identity.EnsureToken(h.cookies, c.Response(), c.Request()); err != nil {
		h.logger.Error("failed to issue reviewer token", slog.Any("error", err))
		return response.InternalError(c, "failed to start review session")
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Render(http.StatusOK, "index.html", ShellData{Title: view.Title})
}
