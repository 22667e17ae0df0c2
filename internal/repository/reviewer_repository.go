package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewerRepository stores reviewer display names by browser token
type ReviewerRepository interface {
	GetByToken(ctx context.Context, token string) (*models.Reviewer, error)
	Upsert(ctx context.Context, reviewer *models.Reviewer) error
}

type reviewerRepository struct {
	db *gorm.DB
}

// NewReviewerRepository creates a new ReviewerRepository instance
func NewReviewerRepository(db *gorm.DB) ReviewerRepository {
	return &reviewerRepository{db: db}
}

// GetByToken retrieves the reviewer for a browser token
func (r *reviewerRepository) GetByToken(ctx context.Context, token string) (*models.Reviewer, error) {
	var reviewer models.Reviewer
	result := r.db.WithContext(ctx).Where("token = ?", token).First(&reviewer)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", result.Error)
	}
	return &reviewer, nil
}

// Upsert creates the reviewer or replaces the stored name
func (r *reviewerRepository) Upsert(ctx context.Context, reviewer *models.Reviewer) error {
	if reviewer.Token == "" {
		return fmt.Errorf("reviewer token is required: %w", ErrInvalidInput)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(reviewer)
	if result.Error != nil {
		return fmt.Errorf("failed to save reviewer: %w", result.Error)
	}
	return nil
}
