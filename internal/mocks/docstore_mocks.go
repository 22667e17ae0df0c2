package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
)

// MockClient implements docstore.Client
type MockClient struct {
	mock.Mock
}

// Subscribe opens a live query
func (m *MockClient) Subscribe(ctx context.Context, emailID string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Subscription, error) {
	args := m.Called(ctx, emailID, onSnapshot, onError)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(docstore.Subscription), args.Error(1)
}

// Add creates a comment and returns its ID
func (m *MockClient) Add(ctx context.Context, emailID string, comment docstore.NewComment) (string, error) {
	args := m.Called(ctx, emailID, comment)
	return args.String(0), args.Error(1)
}

// Update patches the resolution of a comment
func (m *MockClient) Update(ctx context.Context, emailID, commentID string, patch docstore.ResolutionPatch) error {
	args := m.Called(ctx, emailID, commentID, patch)
	return args.Error(0)
}

// Delete removes a comment
func (m *MockClient) Delete(ctx context.Context, emailID, commentID string) error {
	args := m.Called(ctx, emailID, commentID)
	return args.Error(0)
}

// List reads the comments of an email once
func (m *MockClient) List(ctx context.Context, emailID string) ([]models.Comment, error) {
	args := m.Called(ctx, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

// MockSubscription implements docstore.Subscription
type MockSubscription struct {
	mock.Mock
}

// EmailID returns the subscribed email
func (m *MockSubscription) EmailID() string {
	args := m.Called()
	return args.String(0)
}

// Cancel releases the subscription
func (m *MockSubscription) Cancel() {
	m.Called()
}

var (
	_ docstore.Client       = (*MockClient)(nil)
	_ docstore.Subscription = (*MockSubscription)(nil)
)
