package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/handlers"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/middleware"
	"github.com/welldanyogia/rampup-email-reviewer/internal/assets"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
	"github.com/welldanyogia/rampup-email-reviewer/internal/mailer"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
	"github.com/welldanyogia/rampup-email-reviewer/internal/view"
	"github.com/welldanyogia/rampup-email-reviewer/internal/websocket"
	"github.com/welldanyogia/rampup-email-reviewer/web"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	// Ctx bounds background work started by the router (rate limiter
	// cleanup, review sessions)
	Ctx context.Context

	DB        *gorm.DB
	Store     docstore.Client
	Catalog   *catalog.Catalog
	Renderer  *view.Renderer
	Hub       *websocket.Hub
	Cookies   sessions.Store
	Reviewers repository.ReviewerRepository
	Assets    assets.Store
	Sender    mailer.Sender // nil disables test sends
	Outbox    handlers.Outbox
	Logger    *slog.Logger
	SecLog    *logger.SecurityLogger

	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS and WebSocket origins
	Production     bool     // Enforce origin checks on the socket
	RateLimit      float64  // Requests per second per IP
	RateBurst      int      // Burst size for rate limiter
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	e := echo.New()
	e.HideBanner = true
	if cfg.Renderer != nil {
		e.Renderer = cfg.Renderer
	}

	// Security Middleware (applied in correct order)
	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders())

	// 3. CORS
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins))

	// 4. Request logging
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize handlers
	var sessionCounter handlers.SessionCounter
	if cfg.Hub != nil {
		sessionCounter = cfg.Hub
	}
	healthHandler := handlers.NewHealthHandler(cfg.DB, sessionCounter, cfg.Sender != nil)
	pageHandler := handlers.NewPageHandler(cfg.Cookies, cfg.Logger)
	assetHandler := handlers.NewAssetHandler(cfg.Assets, cfg.SecLog)
	funnelHandler := handlers.NewFunnelHandler(cfg.Catalog)
	commentHandler := handlers.NewCommentHandler(cfg.Store, cfg.Catalog)
	mailHandler := handlers.NewMailHandler(cfg.Sender, cfg.Assets, cfg.Catalog, cfg.Outbox, cfg.SecLog, cfg.Logger)

	var upgrader gorillaws.Upgrader
	if cfg.Production {
		upgrader = websocket.NewSecureUpgrader(cfg.AllowedOrigins, cfg.SecLog)
	} else {
		upgrader = websocket.DefaultUpgrader()
	}
	wsHandler := handlers.NewWSHandler(handlers.WSHandlerConfig{
		Ctx:       ctx,
		Hub:       cfg.Hub,
		Upgrader:  upgrader,
		Cookies:   cfg.Cookies,
		Reviewers: cfg.Reviewers,
		Store:     cfg.Store,
		Catalog:   cfg.Catalog,
		Renderer:  cfg.Renderer,
		SecLog:    cfg.SecLog,
		Logger:    cfg.Logger,
	})

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Review shell and its live session
	e.GET("/", pageHandler.Index)
	e.GET("/ws", wsHandler.Serve)
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", http.FileServer(http.FS(web.Static())))))
	e.GET("/emails/*", assetHandler.Serve)

	// API routes
	api := e.Group("/api")

	// Rate limiting applies to the REST API only; the socket has its own read limits
	if cfg.RateLimit > 0 {
		api.Use(middleware.RateLimiter(ctx, cfg.RateLimit, cfg.RateBurst, cfg.SecLog))
	}
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.SecLog))

	// Catalog routes
	api.GET("/funnels", funnelHandler.List)
	api.GET("/funnels/:funnel_id", funnelHandler.Get)

	// Comment routes (nested under emails)
	emails := api.Group("/emails")
	emails.GET("/:email_id/comments", commentHandler.List)
	emails.POST("/:email_id/comments", commentHandler.Create)
	emails.PATCH("/:email_id/comments/:id/resolve", commentHandler.Resolve)
	emails.DELETE("/:email_id/comments/:id", commentHandler.Delete)

	// Test send routes
	emails.POST("/:email_id/send-test", mailHandler.SendTest)
	api.GET("/outbox", mailHandler.Outbox)

	return e
}
