package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/rampup-email-reviewer/internal/assets"
	"github.com/welldanyogia/rampup-email-reviewer/internal/mailer"
)

// MockSender implements mailer.Sender
type MockSender struct {
	mock.Mock
}

// Send delivers a message
func (m *MockSender) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockAssetStore implements assets.Store
type MockAssetStore struct {
	mock.Mock
}

// Path returns the absolute path of a file
func (m *MockAssetStore) Path(relPath string) (string, error) {
	args := m.Called(relPath)
	return args.String(0), args.Error(1)
}

// Open opens a file
func (m *MockAssetStore) Open(relPath string) (io.ReadCloser, error) {
	args := m.Called(relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// ReadEmail reads an email file
func (m *MockAssetStore) ReadEmail(relPath string) (string, error) {
	args := m.Called(relPath)
	return args.String(0), args.Error(1)
}

var (
	_ mailer.Sender = (*MockSender)(nil)
	_ assets.Store  = (*MockAssetStore)(nil)
)
