package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/response"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	apperrors "github.com/welldanyogia/rampup-email-reviewer/internal/errors"
	"github.com/welldanyogia/rampup-email-reviewer/internal/validator"
)

// FunnelHandler serves the campaign catalog
type FunnelHandler struct {
	catalog *catalog.Catalog
}

// NewFunnelHandler creates a new FunnelHandler
func NewFunnelHandler(cat *catalog.Catalog) *FunnelHandler {
	return &FunnelHandler{catalog: cat}
}

// EmailResponse is one email of a funnel with its preview URL
type EmailResponse struct {
	catalog.EmailRecord
	Index      int    `json:"index"`
	PreviewURL string `json:"preview_url"`
}

// FunnelResponse is one funnel of the catalog
type FunnelResponse struct {
	ID         catalog.FunnelID `json:"id"`
	Label      string           `json:"label"`
	Badge      string           `json:"badge"`
	BadgeStyle string           `json:"badge_style,omitempty"`
	Folder     string           `json:"folder"`
	Emails     []EmailResponse  `json:"emails"`
}

// List handles GET /api/funnels
func (h *FunnelHandler) List(c echo.Context) error {
	funnels := h.catalog.Funnels()
	out := make([]FunnelResponse, 0, len(funnels))
	for _, f := range funnels {
		out = append(out, h.funnelResponse(f))
	}
	return response.Success(c, out)
}

// Get handles GET /api/funnels/:funnel_id
func (h *FunnelHandler) Get(c echo.Context) error {
	f, ok := h.catalog.Funnel(catalog.FunnelID(c.Param("funnel_id")))
	if !ok {
		return response.Error(c, apperrors.NewAppError(apperrors.ErrFunnelNotFound, "funnel not found", apperrors.CodeNotFound))
	}
	return response.Success(c, h.funnelResponse(f))
}

func (h *FunnelHandler) funnelResponse(f catalog.Funnel) FunnelResponse {
	emails := make([]EmailResponse, 0, len(f.Emails))
	for i, e := range f.Emails {
		emails = append(emails, EmailResponse{
			EmailRecord: e,
			Index:       i,
			PreviewURL:  h.catalog.PreviewURL(f.ID, e),
		})
	}
	return FunnelResponse{
		ID:         f.ID,
		Label:      f.Label,
		Badge:      f.Badge,
		BadgeStyle: f.BadgeStyle,
		Folder:     f.Folder,
		Emails:     emails,
	}
}

// locateEmail resolves an email ID path parameter against the catalog
func locateEmail(cat *catalog.Catalog, emailID string) (catalog.EmailRecord, error) {
	if err := validator.ValidateEmailID(emailID); err != nil {
		return catalog.EmailRecord{}, apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid email ID", apperrors.CodeInvalidInput)
	}
	_, email, ok := cat.Locate(emailID)
	if !ok {
		return catalog.EmailRecord{}, apperrors.NewAppError(apperrors.ErrEmailNotFound, "email not found", apperrors.CodeNotFound)
	}
	return email, nil
}
