package handlers

import (
	"errors"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/response"
	"github.com/welldanyogia/rampup-email-reviewer/internal/assets"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
)

// AssetHandler serves synced email files for the preview frame
type AssetHandler struct {
	store  assets.Store
	secLog *logger.SecurityLogger
}

// NewAssetHandler creates a new AssetHandler
func NewAssetHandler(store assets.Store, secLog *logger.SecurityLogger) *AssetHandler {
	return &AssetHandler{store: store, secLog: secLog}
}

// Serve handles GET /emails/*
func (h *AssetHandler) Serve(c echo.Context) error {
	rel := c.Param("*")
	// The router matches on the raw path when the request carries one
	if c.Request().URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(rel); err == nil {
			rel = unescaped
		}
	}

	path, err := h.store.Path(rel)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrPathTraversal):
			if h.secLog != nil {
				h.secLog.PathTraversalAttempt(c.RealIP(), c.Request().URL.Path, rel)
			}
			return response.BadRequest(c, "invalid file path")
		case errors.Is(err, assets.ErrFileNotFound):
			return response.NotFound(c, "file not found")
		default:
			return response.InternalError(c, "failed to read file")
		}
	}

	// Previews must reflect the latest sync
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.File(path)
}
