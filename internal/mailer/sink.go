package mailer

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Sink limits
const (
	DefaultSinkCapacity   = 50
	DefaultMaxMessageSize = 10 * 1024 * 1024 // 10 MB
	DefaultMaxRecipients  = 10
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
)

// CapturedMessage is a message received by the sink
type CapturedMessage struct {
	ParsedMessage
	From       string    `json:"envelope_from"`
	AuthUser   string    `json:"auth_user,omitempty"`
	Recipients []string  `json:"envelope_to"`
	ReceivedAt time.Time `json:"received_at"`
}

// Sink is an SMTP backend that keeps the most recent messages in memory.
// It lets test sends be reviewed without a real relay.
type Sink struct {
	capacity int
	logger   *slog.Logger

	mu       sync.RWMutex
	messages []CapturedMessage
}

// NewSink creates a Sink holding at most capacity messages
func NewSink(capacity int, logger *slog.Logger) *Sink {
	if capacity <= 0 {
		capacity = DefaultSinkCapacity
	}
	return &Sink{capacity: capacity, logger: logger}
}

// NewServer creates an SMTP server backed by the sink
func (s *Sink) NewServer(addr string) *smtp.Server {
	srv := smtp.NewServer(s)
	srv.Addr = addr
	srv.Domain = "localhost"
	srv.MaxMessageBytes = DefaultMaxMessageSize
	srv.MaxRecipients = DefaultMaxRecipients
	srv.ReadTimeout = DefaultReadTimeout
	srv.WriteTimeout = DefaultWriteTimeout
	srv.MaxLineLength = DefaultMaxLineLength
	srv.AllowInsecureAuth = true
	return srv
}

// NewSession implements smtp.Backend
func (s *Sink) NewSession(c *smtp.Conn) (smtp.Session, error) {
	if s.logger != nil {
		s.logger.Debug("new SMTP connection", slog.String("remote_addr", c.Conn().RemoteAddr().String()))
	}
	return &sinkSession{sink: s}, nil
}

// Messages returns the captured messages, newest first
func (s *Sink) Messages() []CapturedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CapturedMessage, len(s.messages))
	for i, m := range s.messages {
		out[len(s.messages)-1-i] = m
	}
	return out
}

func (s *Sink) add(msg CapturedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	if len(s.messages) > s.capacity {
		s.messages = s.messages[len(s.messages)-s.capacity:]
	}
}

// sinkSession implements smtp.Session
type sinkSession struct {
	sink       *Sink
	from       string
	recipients []string
	authUser   string
}

// AuthMechanisms implements smtp.AuthSession
func (s *sinkSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth accepts any PLAIN credentials and records the user name
func (s *sinkSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		s.authUser = username
		return nil
	}), nil
}

func (s *sinkSession) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *sinkSession) Rcpt(to string, opts *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *sinkSession) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	parsed, err := ParseMessage(r)
	if err != nil {
		if s.sink.logger != nil {
			s.sink.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}

	s.sink.add(CapturedMessage{
		ParsedMessage: *parsed,
		From:          s.from,
		AuthUser:      s.authUser,
		Recipients:    append([]string(nil), s.recipients...),
		ReceivedAt:    time.Now().UTC(),
	})

	if s.sink.logger != nil {
		s.sink.logger.Info("test email captured",
			slog.String("from", s.from),
			slog.Int("recipients", len(s.recipients)),
			slog.String("subject", parsed.Subject))
	}
	return nil
}

func (s *sinkSession) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *sinkSession) Logout() error {
	return nil
}
