// Package mocks holds testify mocks for the store, repository and mail
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
)

// MockCommentRepository implements repository.CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

// Create creates a new comment
func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

// GetByID retrieves a comment of an email by its ID
func (m *MockCommentRepository) GetByID(ctx context.Context, emailID, id string) (*models.Comment, error) {
	args := m.Called(ctx, emailID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Comment), args.Error(1)
}

// ListByEmail retrieves the comments of an email, newest first
func (m *MockCommentRepository) ListByEmail(ctx context.Context, emailID string) ([]models.Comment, error) {
	args := m.Called(ctx, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

// SetResolution writes the resolved flag and resolver fields
func (m *MockCommentRepository) SetResolution(ctx context.Context, emailID, id string, resolution repository.Resolution) error {
	args := m.Called(ctx, emailID, id, resolution)
	return args.Error(0)
}

// Delete deletes a comment
func (m *MockCommentRepository) Delete(ctx context.Context, emailID, id string) error {
	args := m.Called(ctx, emailID, id)
	return args.Error(0)
}

// MockReviewerRepository implements repository.ReviewerRepository
type MockReviewerRepository struct {
	mock.Mock
}

// GetByToken retrieves a reviewer by browser token
func (m *MockReviewerRepository) GetByToken(ctx context.Context, token string) (*models.Reviewer, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reviewer), args.Error(1)
}

// Upsert stores a reviewer name
func (m *MockReviewerRepository) Upsert(ctx context.Context, reviewer *models.Reviewer) error {
	args := m.Called(ctx, reviewer)
	return args.Error(0)
}

var (
	_ repository.CommentRepository  = (*MockCommentRepository)(nil)
	_ repository.ReviewerRepository = (*MockReviewerRepository)(nil)
)
