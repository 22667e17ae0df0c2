package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data access.
// Every call is scoped by email ID; a comment is never reachable through another email.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, emailID, id string) (*models.Comment, error)
	ListByEmail(ctx context.Context, emailID string) ([]models.Comment, error)
	SetResolution(ctx context.Context, emailID, id string, resolution Resolution) error
	Delete(ctx context.Context, emailID, id string) error
}

// Resolution is the resolved flag together with its resolver fields.
// They are always written in a single statement.
type Resolution struct {
	Resolved   bool
	ResolvedBy *string
	ResolvedAt *int64
}

// commentRepository implements CommentRepository using GORM
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository instance
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts a new comment
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" || comment.EmailID == "" {
		return fmt.Errorf("comment id and email id are required: %w", ErrInvalidInput)
	}
	result := r.db.WithContext(ctx).Create(comment)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return fmt.Errorf("comment '%s' already exists: %w", comment.ID, ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create comment: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a comment of an email by its ID
func (r *commentRepository) GetByID(ctx context.Context, emailID, id string) (*models.Comment, error) {
	var comment models.Comment
	result := r.db.WithContext(ctx).
		Where("email_id = ? AND id = ?", emailID, id).
		First(&comment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", result.Error)
	}
	return &comment, nil
}

// ListByEmail returns all comments of an email, newest first
func (r *commentRepository) ListByEmail(ctx context.Context, emailID string) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	result := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		Order("timestamp DESC").
		Order("id").
		Find(&comments)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list comments: %w", result.Error)
	}
	return comments, nil
}

// SetResolution updates the resolved flag and resolver fields of a comment
func (r *commentRepository) SetResolution(ctx context.Context, emailID, id string, resolution Resolution) error {
	if resolution.Resolved != (resolution.ResolvedBy != nil) || resolution.Resolved != (resolution.ResolvedAt != nil) {
		return fmt.Errorf("resolver fields must match resolved flag: %w", ErrInvalidInput)
	}

	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("email_id = ? AND id = ?", emailID, id).
		Updates(map[string]interface{}{
			"resolved":    resolution.Resolved,
			"resolved_by": resolution.ResolvedBy,
			"resolved_at": resolution.ResolvedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update comment resolution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a comment of an email
func (r *commentRepository) Delete(ctx context.Context, emailID, id string) error {
	result := r.db.WithContext(ctx).
		Where("email_id = ? AND id = ?", emailID, id).
		Delete(&models.Comment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
