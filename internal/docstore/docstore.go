// Package docstore is the live document store for review comments.
//
// Comments live under comments/{emailID}/items/{commentID}. Clients open a
// live query per email and receive the complete, newest-first comment list
// every time it changes, including changes made through the same client.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
)

var (
	// ErrClosed is returned when the store is no longer delivering snapshots
	ErrClosed = errors.New("document store closed")
)

// Snapshot is the full comment list of one email at a point in time
type Snapshot struct {
	EmailID  string
	Comments []models.Comment
	ReadAt   time.Time
}

// NewComment holds the client-supplied fields of a comment document
type NewComment struct {
	Text      string
	Author    string
	Timestamp int64
	Resolved  bool
	EmailName string
}

// ResolutionPatch updates the resolved flag together with its resolver fields
type ResolutionPatch struct {
	Resolved   bool
	ResolvedBy *string
	ResolvedAt *int64
}

// SnapshotFunc receives every snapshot of a live query
type SnapshotFunc func(Snapshot)

// ErrorFunc receives live query failures
type ErrorFunc func(error)

// Subscription is an open live query. Cancel must be called to release it.
type Subscription interface {
	EmailID() string
	Cancel()
}

// Client is the document store API used by review sessions and handlers
type Client interface {
	Subscribe(ctx context.Context, emailID string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error)
	Add(ctx context.Context, emailID string, comment NewComment) (string, error)
	Update(ctx context.Context, emailID, commentID string, patch ResolutionPatch) error
	Delete(ctx context.Context, emailID, commentID string) error
	List(ctx context.Context, emailID string) ([]models.Comment, error)
}
