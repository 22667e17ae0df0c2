package handlers

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/rampup-email-reviewer/internal/api/response"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	apperrors "github.com/welldanyogia/rampup-email-reviewer/internal/errors"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
	"github.com/welldanyogia/rampup-email-reviewer/internal/validator"
)

// CommentHandler handles comment-related HTTP requests. Writes go through
// the document store so open review sessions see them live.
type CommentHandler struct {
	store   docstore.Client
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(store docstore.Client, cat *catalog.Catalog) *CommentHandler {
	return &CommentHandler{
		store:   store,
		catalog: cat,
		now:     time.Now,
	}
}

// CreateCommentRequest represents the request body for creating a comment
type CreateCommentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// ResolveCommentRequest represents the request body for resolving or reopening a comment
type ResolveCommentRequest struct {
	Resolved   bool   `json:"resolved"`
	ResolvedBy string `json:"resolved_by"`
}

// CreatedComment is returned after a comment is added
type CreatedComment struct {
	ID      string `json:"id"`
	EmailID string `json:"emailId"`
}

// List handles GET /api/emails/:email_id/comments
func (h *CommentHandler) List(c echo.Context) error {
	email, err := locateEmail(h.catalog, c.Param("email_id"))
	if err != nil {
		return response.Error(c, err)
	}

	comments, err := h.store.List(c.Request().Context(), email.ID)
	if err != nil {
		return response.InternalError(c, "failed to list comments")
	}

	return response.Success(c, comments)
}

// Create handles POST /api/emails/:email_id/comments
func (h *CommentHandler) Create(c echo.Context) error {
	email, err := locateEmail(h.catalog, c.Param("email_id"))
	if err != nil {
		return response.Error(c, err)
	}

	var req CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	text, err := validator.NormalizeCommentText(req.Text)
	if err != nil {
		return response.BadRequest(c, "invalid comment text: "+err.Error())
	}
	author, err := reviewerName(req.Author, "author")
	if err != nil {
		return response.Error(c, err)
	}

	id, err := h.store.Add(c.Request().Context(), email.ID, docstore.NewComment{
		Text:      text,
		Author:    author,
		Timestamp: h.now().UnixMilli(),
		Resolved:  false,
		EmailName: email.Name,
	})
	if err != nil {
		return response.InternalError(c, "failed to create comment")
	}

	return response.Created(c, CreatedComment{ID: id, EmailID: email.ID})
}

// Resolve handles PATCH /api/emails/:email_id/comments/:id/resolve
func (h *CommentHandler) Resolve(c echo.Context) error {
	email, err := locateEmail(h.catalog, c.Param("email_id"))
	if err != nil {
		return response.Error(c, err)
	}

	commentID := c.Param("id")
	if commentID == "" {
		return response.BadRequest(c, "invalid comment ID")
	}

	var req ResolveCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	patch := docstore.ResolutionPatch{Resolved: req.Resolved}
	if req.Resolved {
		by, err := reviewerName(req.ResolvedBy, "resolved_by")
		if err != nil {
			return response.Error(c, err)
		}
		at := h.now().UnixMilli()
		patch.ResolvedBy = &by
		patch.ResolvedAt = &at
	}

	if err := h.store.Update(c.Request().Context(), email.ID, commentID, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.Error(c, errCommentNotFound())
		}
		return response.InternalError(c, "failed to update comment")
	}

	message := "comment reopened"
	if req.Resolved {
		message = "comment resolved"
	}
	return response.SuccessWithMessage(c, nil, message)
}

// Delete handles DELETE /api/emails/:email_id/comments/:id
func (h *CommentHandler) Delete(c echo.Context) error {
	email, err := locateEmail(h.catalog, c.Param("email_id"))
	if err != nil {
		return response.Error(c, err)
	}

	commentID := c.Param("id")
	if commentID == "" {
		return response.BadRequest(c, "invalid comment ID")
	}

	if err := h.store.Delete(c.Request().Context(), email.ID, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.Error(c, errCommentNotFound())
		}
		return response.InternalError(c, "failed to delete comment")
	}

	return response.NoContent(c)
}

func errCommentNotFound() error {
	return apperrors.NewAppError(apperrors.ErrCommentNotFound, "comment not found", apperrors.CodeNotFound)
}

// reviewerName normalizes the name attached to a write. A missing name is
// REVIEWER_REQUIRED; an overlong one is invalid input.
func reviewerName(name, field string) (string, error) {
	name, err := validator.NormalizeReviewerName(name)
	switch {
	case errors.Is(err, validator.ErrEmptyInput):
		return "", apperrors.NewAppError(apperrors.ErrReviewerRequired, field+" is required", apperrors.CodeReviewerRequired)
	case err != nil:
		return "", apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid "+field+": "+err.Error(), apperrors.CodeInvalidInput)
	}
	return name, nil
}
