// Package mailer sends test copies of campaign emails and can capture them
// in an in-process SMTP sink for local review.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
)

// ErrNotConfigured is returned when no relay address is set
var ErrNotConfigured = errors.New("smtp relay not configured")

// DefaultTimeout bounds one delivery
const DefaultTimeout = 30 * time.Second

// Message is one outgoing test email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds relay settings
type Config struct {
	Addr     string
	From     string
	Username string
	Password string
	Timeout  time.Duration

	// StartTLS upgrades the connection before authenticating
	StartTLS  bool
	// TLSConfig overrides the STARTTLS client config. The default verifies
	// the relay host name and requires TLS 1.2.
	TLSConfig *tls.Config
}

// SMTPMailer delivers through an SMTP relay
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a new SMTPMailer
func New(cfg Config, logger *slog.Logger) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Build encodes msg as a MIME message
func (m *SMTPMailer) Build(msg Message) ([]byte, error) {
	part, err := enmime.Builder().
		From("RampUp Email Reviewer", m.cfg.From).
		To("", msg.To).
		Subject(msg.Subject).
		Date(time.Now()).
		HTML([]byte(msg.HTML)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// Send delivers msg to the relay. The connection is upgraded with STARTTLS
// when configured, and PLAIN authentication is used when a username is set
// and the relay offers it.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Addr == "" {
		return ErrNotConfigured
	}

	data, err := m.Build(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := m.newClient(conn)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth failed: %w", err)
			}
		}
	}

	if err := c.SendMail(m.cfg.From, []string{msg.To}, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if err := c.Quit(); err != nil && m.logger != nil {
		m.logger.Debug("smtp quit failed", slog.Any("error", err))
	}

	if m.logger != nil {
		m.logger.Info("test email sent",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject))
	}
	return nil
}

// newClient greets the relay, upgrading to TLS first when configured
func (m *SMTPMailer) newClient(conn net.Conn) (*smtp.Client, error) {
	if !m.cfg.StartTLS {
		c := smtp.NewClient(conn)
		if err := c.Hello("localhost"); err != nil {
			c.Close()
			return nil, fmt.Errorf("smtp hello failed: %w", err)
		}
		return c, nil
	}

	c, err := smtp.NewClientStartTLS(conn, m.tlsConfig())
	if err != nil {
		return nil, fmt.Errorf("smtp starttls failed: %w", err)
	}
	return c, nil
}

func (m *SMTPMailer) tlsConfig() *tls.Config {
	if m.cfg.TLSConfig != nil {
		return m.cfg.TLSConfig
	}
	host, _, err := net.SplitHostPort(m.cfg.Addr)
	if err != nil {
		host = m.cfg.Addr
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}
