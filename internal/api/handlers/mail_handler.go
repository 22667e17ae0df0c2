package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/response"
	"github.com/welldanyogia/rampup-email-reviewer/internal/assets"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	apperrors "github.com/welldanyogia/rampup-email-reviewer/internal/errors"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
	"github.com/welldanyogia/rampup-email-reviewer/internal/mailer"
	"github.com/welldanyogia/rampup-email-reviewer/internal/validator"
)

// TestSubjectPrefix marks test sends in the recipient's inbox
const TestSubjectPrefix = "[Test] "

// Outbox lists messages captured by the local SMTP sink
type Outbox interface {
	Messages() []mailer.CapturedMessage
}

// MailHandler sends test emails and lists captured ones
type MailHandler struct {
	sender  mailer.Sender
	assets  assets.Store
	catalog *catalog.Catalog
	outbox  Outbox
	secLog  *logger.SecurityLogger
	logger  *slog.Logger
}

// NewMailHandler creates a new MailHandler. A nil sender disables test
// sends and a nil outbox disables the outbox listing.
func NewMailHandler(sender mailer.Sender, store assets.Store, cat *catalog.Catalog, outbox Outbox, secLog *logger.SecurityLogger, logger *slog.Logger) *MailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailHandler{
		sender:  sender,
		assets:  store,
		catalog: cat,
		outbox:  outbox,
		secLog:  secLog,
		logger:  logger,
	}
}

// SendTestRequest represents the request body for a test send
type SendTestRequest struct {
	To string `json:"to"`
}

// SendTestResult describes a delivered test send
type SendTestResult struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	EmailID string `json:"email_id"`
}

// SendTest handles POST /api/emails/:email_id/send-test
func (h *MailHandler) SendTest(c echo.Context) error {
	if h.sender == nil {
		return response.Error(c, apperrors.NewAppError(apperrors.ErrMailDisabled,
			"test sends are disabled, set SMTP_ADDR to enable them", apperrors.CodeMailDisabled))
	}

	email, err := locateEmail(h.catalog, c.Param("email_id"))
	if err != nil {
		return response.Error(c, err)
	}
	funnel, _, _ := h.catalog.Locate(email.ID)

	var req SendTestRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	to := strings.TrimSpace(req.To)
	if err := validator.ValidateEmail(to); err != nil {
		if h.secLog != nil {
			h.secLog.RejectedTestSend(c.RealIP(), recipientDomain(to), "invalid_recipient")
		}
		return response.BadRequest(c, "invalid recipient address")
	}

	html, err := h.assets.ReadEmail(h.catalog.ResolvePath(funnel, email))
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrFileNotFound):
			return response.NotFound(c, "email file not found, run syncassets first")
		case errors.Is(err, assets.ErrFileTooLarge):
			return response.BadRequest(c, "email file is too large to send")
		default:
			return response.InternalError(c, "failed to read email file")
		}
	}

	subject := email.Subject
	if subject == "" {
		subject = email.Name
	}
	msg := mailer.Message{
		To:      to,
		Subject: TestSubjectPrefix + subject,
		HTML:    html,
	}

	if err := h.sender.Send(c.Request().Context(), msg); err != nil {
		h.logger.Error("test send failed",
			slog.String("email_id", email.ID),
			slog.String("recipient_domain", recipientDomain(to)),
			slog.Any("error", err))
		return response.InternalError(c, "failed to send test email")
	}

	return response.SuccessWithMessage(c, SendTestResult{
		To:      to,
		Subject: msg.Subject,
		EmailID: email.ID,
	}, "test email sent")
}

// maxOutboxLimit caps one outbox page
const maxOutboxLimit = 100

// Outbox handles GET /api/outbox
func (h *MailHandler) Outbox(c echo.Context) error {
	if h.outbox == nil {
		return response.NotFound(c, "outbox is disabled")
	}

	limit := 20
	offset := 0

	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxOutboxLimit {
		limit = maxOutboxLimit
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	messages := h.outbox.Messages()
	total := len(messages)

	start := offset
	if start > total {
		start = total
	}
	end := total
	if limit < total-start {
		end = start + limit
	}

	page := make([]mailer.CapturedMessage, 0, end-start)
	page = append(page, messages[start:end]...)

	return response.Paginated(c, page, int64(total), limit, offset)
}

// recipientDomain returns the part after the last @, or "" when absent
func recipientDomain(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[i+1:])
}
