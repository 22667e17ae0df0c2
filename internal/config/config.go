package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// MinSessionSecretLength is the shortest accepted cookie signing key
const MinSessionSecretLength = 32

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL    string
	DatabaseDriver string

	// Server port
	APIPort int

	// Assets
	PublicDir string

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string
	SessionSecret  string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// Outbound mail for test sends. Empty SMTPAddr disables sending.
	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration
	SMTPStartTLS bool

	// Local capture server for test sends. Empty disables it.
	SMTPSinkAddr string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// DATABASE_DRIVER (default: postgres)
	cfg.DatabaseDriver = strings.ToLower(os.Getenv("DATABASE_DRIVER"))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverPostgres
	}

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	// PUBLIC_DIR (default: ./public)
	cfg.PublicDir = os.Getenv("PUBLIC_DIR")
	if cfg.PublicDir == "" {
		cfg.PublicDir = "./public"
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	// Mail configuration
	cfg.SMTPAddr = os.Getenv("SMTP_ADDR")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.SMTPSinkAddr = os.Getenv("SMTP_SINK_ADDR")

	// SMTP_STARTTLS (default: false)
	if v := os.Getenv("SMTP_STARTTLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SMTP_STARTTLS must be a boolean: %w", err)
		}
		cfg.SMTPStartTLS = b
	}

	// SMTP_TIMEOUT (default: 30s)
	if timeout := os.Getenv("SMTP_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("SMTP_TIMEOUT must be a valid duration: %w", err)
		}
		cfg.SMTPTimeout = d
	} else {
		cfg.SMTPTimeout = 30 * time.Second
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.IsProduction() {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MailEnabled reports whether test sends can be delivered
func (c *Config) MailEnabled() bool {
	return c.SMTPAddr != ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverSQLite {
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.PublicDir == "" {
		return fmt.Errorf("PublicDir cannot be empty")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	if c.SMTPAddr != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_ADDR is set")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}

	// Check for sslmode=disable in database URL
	if c.DatabaseDriver == DriverPostgres && strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if c.SMTPSinkAddr != "" {
		return fmt.Errorf("SMTP_SINK_ADDR is not allowed in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("database_driver", c.DatabaseDriver),
		slog.Int("api_port", c.APIPort),
		slog.String("public_dir", c.PublicDir),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Bool("session_secret_set", c.SessionSecret != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.Bool("mail_enabled", c.MailEnabled()),
		slog.Bool("smtp_starttls", c.SMTPStartTLS),
		slog.String("smtp_sink_addr", c.SMTPSinkAddr),
	)
}
