package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/handlers"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/middleware"
	"github.com/welldanyogia/rampup-email-reviewer/internal/assets"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/config"
	"github.com/welldanyogia/rampup-email-reviewer/internal/database"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	"github.com/welldanyogia/rampup-email-reviewer/internal/identity"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
	"github.com/welldanyogia/rampup-email-reviewer/internal/mailer"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
	"github.com/welldanyogia/rampup-email-reviewer/internal/view"
	"github.com/welldanyogia/rampup-email-reviewer/internal/websocket"
)

const (
	// sinkCapacity is the number of captured test sends kept in memory
	sinkCapacity = 100

	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return err
	}

	// Setup logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	secLog := logger.NewSecurityLogger()

	slog.Info("Starting RampUp email reviewer...")
	cfg.LogConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Initialize repositories and the live comment store
	commentRepo := repository.NewCommentRepository(db)
	reviewerRepo := repository.NewReviewerRepository(db)

	store := docstore.NewStore(commentRepo, log)
	go store.Run(ctx)

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	secret, err := cookieSecret(cfg)
	if err != nil {
		return err
	}
	cookies := identity.NewCookieStore(secret, cfg.IsProduction())

	// Local SMTP sink captures test sends when configured
	var (
		sink       *mailer.Sink
		sinkServer *smtp.Server
	)
	if cfg.SMTPSinkAddr != "" {
		sink = mailer.NewSink(sinkCapacity, log)
		sinkServer = sink.NewServer(cfg.SMTPSinkAddr)
		go func() {
			slog.Info("SMTP sink listening", slog.String("addr", cfg.SMTPSinkAddr))
			if err := sinkServer.ListenAndServe(); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
				slog.Error("SMTP sink stopped", slog.Any("error", err))
			}
		}()
	}

	var sender mailer.Sender
	if cfg.MailEnabled() {
		sender = mailer.New(mailer.Config{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Timeout:  cfg.SMTPTimeout,
			StartTLS: cfg.SMTPStartTLS,
		}, log)
	}

	var outbox handlers.Outbox
	if sink != nil {
		outbox = sink
	}

	// Initialize HTTP server
	e := api.NewRouter(&api.RouterConfig{
		Ctx:            ctx,
		DB:             db,
		Store:          store,
		Catalog:        catalog.Default(),
		Renderer:       renderer,
		Hub:            hub,
		Cookies:        cookies,
		Reviewers:      reviewerRepo,
		Assets:         assets.NewLocalStore(cfg.PublicDir),
		Sender:         sender,
		Outbox:         outbox,
		Logger:         log,
		SecLog:         secLog,
		APIKey:         cfg.APIKey,
		AllowedOrigins: middleware.ParseOrigins(cfg.AllowedOrigins, cfg.IsProduction()),
		Production:     cfg.IsProduction(),
		RateLimit:      cfg.RateLimitRequests,
		RateBurst:      cfg.RateLimitBurst,
	})

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	if sinkServer != nil {
		if err := sinkServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("SMTP sink shutdown failed", slog.Any("error", err))
		}
	}

	slog.Info("Server stopped")
	return nil
}

// cookieSecret returns the configured signing key, or a random one outside
// production. A random key signs out every reviewer on restart.
func cookieSecret(cfg *config.Config) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("SESSION_SECRET is required in production")
	}

	secret := make([]byte, config.MinSessionSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	slog.Warn("SESSION_SECRET not set - using a random key, reviewer names reset on restart")
	return secret, nil
}
