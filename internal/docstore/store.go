package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
)

// Store implements Client on top of the comment repository.
// Every successful write publishes a fresh snapshot of the affected email.
type Store struct {
	repo   repository.CommentRepository
	broker *Broker
	newID  func() string
	logger *slog.Logger
}

var _ Client = (*Store)(nil)

// NewStore creates a new Store. Run must be started before subscribing.
func NewStore(repo repository.CommentRepository, logger *slog.Logger) *Store {
	return &Store{
		repo:   repo,
		broker: NewBroker(repo.ListByEmail, logger),
		newID:  uuid.NewString,
		logger: logger,
	}
}

// Run delivers snapshots until ctx is cancelled
func (s *Store) Run(ctx context.Context) {
	s.broker.Run(ctx)
}

// Broker exposes the live query registry
func (s *Store) Broker() *Broker {
	return s.broker
}

// Subscribe opens a live query ordered by timestamp, newest first
func (s *Store) Subscribe(ctx context.Context, emailID string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if strings.TrimSpace(emailID) == "" {
		return nil, fmt.Errorf("email id is required: %w", repository.ErrInvalidInput)
	}
	return s.broker.Subscribe(ctx, emailID, onSnapshot, onError)
}

// Add creates a comment document and returns its server-assigned ID
func (s *Store) Add(ctx context.Context, emailID string, comment NewComment) (string, error) {
	if strings.TrimSpace(emailID) == "" {
		return "", fmt.Errorf("email id is required: %w", repository.ErrInvalidInput)
	}

	doc := &models.Comment{
		ID:        s.newID(),
		EmailID:   emailID,
		Text:      comment.Text,
		Author:    comment.Author,
		Timestamp: comment.Timestamp,
		Resolved:  comment.Resolved,
		EmailName: comment.EmailName,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Info("comment added",
			slog.String("email_id", emailID),
			slog.String("comment_id", doc.ID),
			slog.String("author", doc.Author))
	}
	s.broker.Publish(emailID)
	return doc.ID, nil
}

// Update writes the resolution fields of a comment
func (s *Store) Update(ctx context.Context, emailID, commentID string, patch ResolutionPatch) error {
	err := s.repo.SetResolution(ctx, emailID, commentID, repository.Resolution{
		Resolved:   patch.Resolved,
		ResolvedBy: patch.ResolvedBy,
		ResolvedAt: patch.ResolvedAt,
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("comment resolution changed",
			slog.String("email_id", emailID),
			slog.String("comment_id", commentID),
			slog.Bool("resolved", patch.Resolved))
	}
	s.broker.Publish(emailID)
	return nil
}

// Delete removes a comment document
func (s *Store) Delete(ctx context.Context, emailID, commentID string) error {
	if err := s.repo.Delete(ctx, emailID, commentID); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("comment deleted",
			slog.String("email_id", emailID),
			slog.String("comment_id", commentID))
	}
	s.broker.Publish(emailID)
	return nil
}

// List reads the comment list of an email once, newest first
func (s *Store) List(ctx context.Context, emailID string) ([]models.Comment, error) {
	return s.repo.ListByEmail(ctx, emailID)
}
