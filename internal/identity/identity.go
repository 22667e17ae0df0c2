// Package identity persists the reviewer's display name between visits.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
)

// ErrNoIdentity is returned when no name has been stored yet
var ErrNoIdentity = errors.New("reviewer name not set")

// Store loads and saves a single reviewer name
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, name string) error
}

// RepositoryStore keeps the name in the reviewers table under a browser token
type RepositoryStore struct {
	repo   repository.ReviewerRepository
	token  string
	logger *slog.Logger
}

// NewRepositoryStore creates a Store bound to one browser token
func NewRepositoryStore(repo repository.ReviewerRepository, token string, logger *slog.Logger) *RepositoryStore {
	return &RepositoryStore{repo: repo, token: token, logger: logger}
}

// Load returns the stored name, or ErrNoIdentity
func (s *RepositoryStore) Load(ctx context.Context) (string, error) {
	reviewer, err := s.repo.GetByToken(ctx, s.token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoIdentity
		}
		return "", fmt.Errorf("failed to load reviewer name: %w", err)
	}
	return reviewer.Name, nil
}

// Save stores the name under the browser token
func (s *RepositoryStore) Save(ctx context.Context, name string) error {
	if err := s.repo.Upsert(ctx, &models.Reviewer{Token: s.token, Name: name}); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("reviewer name saved", slog.String("name", name))
	}
	return nil
}

// MemoryStore keeps the name in process memory
type MemoryStore struct {
	mu   sync.Mutex
	name string
}

// NewMemoryStore creates a MemoryStore, optionally pre-populated
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name}
}

// Load returns the stored name, or ErrNoIdentity
func (s *MemoryStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name == "" {
		return "", ErrNoIdentity
	}
	return s.name, nil
}

// Save stores the name
func (s *MemoryStore) Save(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	return nil
}
