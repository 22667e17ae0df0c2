package handlers

import (
	"context"
	"log/slog"

	"github.com/gorilla/sessions"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/response"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	apperrors "github.com/welldanyogia/rampup-email-reviewer/internal/errors"
	"github.com/welldanyogia/rampup-email-reviewer/internal/identity"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
	"github.com/welldanyogia/rampup-email-reviewer/internal/review"
	"github.com/welldanyogia/rampup-email-reviewer/internal/view"
	"github.com/welldanyogia/rampup-email-reviewer/internal/websocket"
)

// WSHandler upgrades browser tabs into live review sessions
type WSHandler struct {
	ctx       context.Context
	hub       *websocket.Hub
	upgrader  gorillaws.Upgrader
	cookies   sessions.Store
	reviewers repository.ReviewerRepository
	store     docstore.Client
	catalog   *catalog.Catalog
	renderer  *view.Renderer
	secLog    *logger.SecurityLogger
	logger    *slog.Logger
}

// WSHandlerConfig holds the dependencies of a WSHandler
type WSHandlerConfig struct {
	// Ctx bounds every session; cancelling it ends their reads
	Ctx       context.Context
	Hub       *websocket.Hub
	Upgrader  gorillaws.Upgrader
	Cookies   sessions.Store
	Reviewers repository.ReviewerRepository
	Store     docstore.Client
	Catalog   *catalog.Catalog
	Renderer  *view.Renderer
	SecLog    *logger.SecurityLogger
	Logger    *slog.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(cfg WSHandlerConfig) *WSHandler {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		ctx:       ctx,
		hub:       cfg.Hub,
		upgrader:  cfg.Upgrader,
		cookies:   cfg.Cookies,
		reviewers: cfg.Reviewers,
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		renderer:  cfg.Renderer,
		secLog:    cfg.SecLog,
		logger:    log,
	}
}

// Serve handles GET /ws
func (h *WSHandler) Serve(c echo.Context) error {
	token, ok := identity.Token(h.cookies, c.Request())
	if !ok {
		if h.secLog != nil {
			h.secLog.SuspiciousActivity(c.RealIP(), c.Request().URL.Path, "websocket_without_token")
		}
		return response.Error(c, apperrors.NewAppError(apperrors.ErrUnauthorized,
			"reviewer token required, reload the page", apperrors.CodeUnauthorized))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the failure response
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.renderer, h.catalog, h.logger)
	ident := identity.NewRepositoryStore(h.reviewers, token, h.logger)

	session, err := review.NewSession(h.ctx, h.catalog, h.store, ident,
		review.WithOnChange(client.Invalidate),
		review.WithLogger(h.logger),
	)
	if err != nil {
		h.logger.Error("failed to open review session", slog.Any("error", err))
		conn.WriteMessage(gorillaws.CloseMessage,
			gorillaws.FormatCloseMessage(gorillaws.CloseInternalServerErr, "session unavailable"))
		conn.Close()
		return nil
	}

	client.Attach(session)
	h.hub.Register(client)

	go client.WritePump()
	go client.RenderLoop()
	client.ReadPump(h.ctx)

	return nil
}
