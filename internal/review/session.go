// Package review implements the review session controller.
//
// A Session owns the state of one reviewer's view: the selected funnel and
// email, the preview mode, the comment composer and the live comment list of
// the selected email. It keeps exactly one live query open on the document
// store and replaces the comment list wholesale on every snapshot.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	"github.com/welldanyogia/rampup-email-reviewer/internal/identity"
	"github.com/welldanyogia/rampup-email-reviewer/internal/validator"
)

// Intent errors. Rejected intents leave the session unchanged.
var (
	ErrBlocked         = errors.New("reviewer name required")
	ErrEmptyComment    = errors.New("comment text is empty")
	ErrEmptyName       = errors.New("reviewer name is empty")
	ErrNoReviewer      = fmt.Errorf("no reviewer set: %w", ErrBlocked)
	ErrUnknownFunnel   = errors.New("unknown funnel")
	ErrUnknownEmail    = errors.New("email not in current funnel")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrSessionClosed   = errors.New("review session closed")
)

// Notices shown to the reviewer
const (
	NoticeAddFailed     = "Error adding comment. Check console for details."
	NoticeResolveFailed = "Error updating comment. Check console for details."
	NoticeDeleteFailed  = "Error deleting comment. Check console for details."
)

// DeletePrompt is the confirmation question asked before a delete
const DeletePrompt = "Are you sure you want to delete this comment?"

// ConfirmFunc asks the reviewer a yes/no question
type ConfirmFunc func(prompt string) bool

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithOnChange registers a callback run after every state change,
// including changes caused by incoming snapshots. It is called without
// any session lock held.
func WithOnChange(fn func()) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// Session is the controller of one reviewer's view
type Session struct {
	catalog  *catalog.Catalog
	store    docstore.Client
	identity identity.Store
	logger   *slog.Logger
	now      func() time.Time
	onChange func()

	// mu guards state and generation. It is never held while calling the store.
	mu         sync.Mutex
	state      State
	generation uint64

	// subMu serializes selection changes with their resubscription
	subMu  sync.Mutex
	sub    docstore.Subscription
	closed bool
}

// NewSession creates a session on the first email of the default funnel,
// loads the reviewer name and opens the live query.
func NewSession(ctx context.Context, cat *catalog.Catalog, store docstore.Client, ident identity.Store, opts ...Option) (*Session, error) {
	funnel := cat.MustFunnel(catalog.DefaultFunnel)
	s := &Session{
		catalog:  cat,
		store:    store,
		identity: ident,
		logger:   slog.Default(),
		now:      time.Now,
		state: State{
			Funnel:   funnel.ID,
			Email:    funnel.First(),
			ViewMode: ViewDesktop,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	name, err := ident.Load(ctx)
	switch {
	case err == nil:
		s.state.ReviewerName = name
	case errors.Is(err, identity.ErrNoIdentity):
	default:
		s.logger.Error("failed to load reviewer name", slog.Any("error", err))
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if err := s.subscribeLocked(ctx, s.state.Email.ID, 0); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns a copy of the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Comments = append(st.Comments[:0:0], s.state.Comments...)
	funnel := s.catalog.MustFunnel(st.Funnel)
	st.Index = funnel.IndexOf(st.Email.ID)
	st.Count = len(funnel.Emails)
	return st
}

// TakeNotice returns the pending notice and clears it
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notice := s.state.Notice
	s.state.Notice = ""
	return notice
}

// SelectFunnel switches funnel and selects its first email
func (s *Session) SelectFunnel(ctx context.Context, id catalog.FunnelID) error {
	if err := s.checkBlocked(); err != nil {
		return err
	}
	funnel, ok := s.catalog.Funnel(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunnel, id)
	}
	return s.moveTo(ctx, funnel.ID, funnel.First())
}

// SelectEmail selects an email of the current funnel
func (s *Session) SelectEmail(ctx context.Context, emailID string) error {
	if err := s.checkBlocked(); err != nil {
		return err
	}
	s.mu.Lock()
	funnelID := s.state.Funnel
	s.mu.Unlock()

	email, ok := s.catalog.Email(funnelID, emailID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEmail, emailID)
	}
	return s.moveTo(ctx, funnelID, email)
}

// Advance selects the next email. It is a no-op on the last one.
func (s *Session) Advance(ctx context.Context) error {
	return s.step(ctx, 1)
}

// Retreat selects the previous email. It is a no-op on the first one.
func (s *Session) Retreat(ctx context.Context) error {
	return s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, delta int) error {
	if err := s.checkBlocked(); err != nil {
		return err
	}
	s.mu.Lock()
	funnel := s.catalog.MustFunnel(s.state.Funnel)
	next := funnel.IndexOf(s.state.Email.ID) + delta
	s.mu.Unlock()

	if next < 0 || next >= len(funnel.Emails) {
		return nil
	}
	return s.moveTo(ctx, funnel.ID, funnel.Emails[next])
}

// moveTo updates the selection and replaces the live query when the
// selected email changed. Comments of the previous email are dropped
// before the new query opens.
func (s *Session) moveTo(ctx context.Context, funnelID catalog.FunnelID, email catalog.EmailRecord) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.mu.Lock()
	changed := s.state.Email.ID != email.ID
	s.state.Funnel = funnelID
	s.state.Email = email
	var gen uint64
	if changed {
		s.generation++
		gen = s.generation
		s.state.Comments = nil
	}
	s.mu.Unlock()

	var err error
	if changed {
		err = s.subscribeLocked(ctx, email.ID, gen)
	}
	s.notify()
	return err
}

// subscribeLocked cancels the open live query and opens one on emailID.
// subMu must be held.
func (s *Session) subscribeLocked(ctx context.Context, emailID string, gen uint64) error {
	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}

	sub, err := s.store.Subscribe(ctx, emailID,
		func(snap docstore.Snapshot) { s.applySnapshot(gen, snap) },
		func(err error) { s.subscriptionFailed(gen, emailID, err) },
	)
	if err != nil {
		s.logger.Error("failed to subscribe to comments",
			slog.String("email_id", emailID), slog.Any("error", err))
		return fmt.Errorf("failed to subscribe to comments: %w", err)
	}
	s.sub = sub
	return nil
}

func (s *Session) applySnapshot(gen uint64, snap docstore.Snapshot) {
	s.mu.Lock()
	if gen != s.generation || snap.EmailID != s.state.Email.ID {
		s.mu.Unlock()
		return
	}
	s.state.Comments = snap.Comments
	s.mu.Unlock()
	s.notify()
}

// subscriptionFailed keeps the last known list
func (s *Session) subscriptionFailed(gen uint64, emailID string, err error) {
	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()
	if !current {
		return
	}
	s.logger.Error("error fetching comments",
		slog.String("email_id", emailID), slog.Any("error", err))
}

// SetViewMode switches between desktop and mobile preview
func (s *Session) SetViewMode(mode ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
	}
	return s.update(func(st *State) {
		st.ViewMode = mode
	})
}

// SetReviewerName stores the reviewer name and unblocks the session
func (s *Session) SetReviewerName(ctx context.Context, name string) error {
	name, err := validator.NormalizeReviewerName(name)
	if err != nil {
		if errors.Is(err, validator.ErrEmptyInput) {
			return ErrEmptyName
		}
		return err
	}

	if err := s.identity.Save(ctx, name); err != nil {
		s.logger.Error("failed to save reviewer name", slog.Any("error", err))
		return fmt.Errorf("failed to save reviewer name: %w", err)
	}

	s.mu.Lock()
	s.state.ReviewerName = name
	s.mu.Unlock()
	s.notify()
	return nil
}

// ToggleComposer opens or closes the comment composer
func (s *Session) ToggleComposer() error {
	return s.update(func(st *State) {
		st.ComposerOpen = !st.ComposerOpen
	})
}

// SetDraft stores the unsent comment text
func (s *Session) SetDraft(text string) error {
	if err := s.checkBlocked(); err != nil {
		return err
	}
	s.mu.Lock()
	s.state.Draft = text
	s.mu.Unlock()
	return nil
}

// ToggleResolvedSection expands or collapses the resolved comments
func (s *Session) ToggleResolvedSection() error {
	return s.update(func(st *State) {
		st.ShowResolved = !st.ShowResolved
	})
}

// SubmitComment adds a comment to the selected email. On success the draft
// is cleared and the composer closed; on failure the draft is kept and a
// notice is raised.
func (s *Session) SubmitComment(ctx context.Context, text string) error {
	text, err := validator.NormalizeCommentText(text)
	if err != nil {
		if errors.Is(err, validator.ErrEmptyInput) {
			return ErrEmptyComment
		}
		return err
	}

	s.mu.Lock()
	author := s.state.ReviewerName
	email := s.state.Email
	s.mu.Unlock()
	if author == "" {
		return ErrNoReviewer
	}

	id, err := s.store.Add(ctx, email.ID, docstore.NewComment{
		Text:      text,
		Author:    author,
		Timestamp: s.now().UnixMilli(),
		Resolved:  false,
		EmailName: email.Name,
	})
	if err != nil {
		s.logger.Error("error adding comment",
			slog.String("email_id", email.ID), slog.Any("error", err))
		s.update(func(st *State) {
			st.Draft = text
			st.DraftRev++
			st.Notice = NoticeAddFailed
		})
		return fmt.Errorf("failed to add comment: %w", err)
	}

	s.logger.Debug("comment submitted",
		slog.String("email_id", email.ID), slog.String("comment_id", id))
	s.update(func(st *State) {
		st.Draft = ""
		st.DraftRev++
		st.ComposerOpen = false
	})
	return nil
}

// ToggleResolved flips the resolved flag of a comment on the selected email.
// Resolving records the acting reviewer and time; reopening clears both.
func (s *Session) ToggleResolved(ctx context.Context, commentID string, currentStatus bool) error {
	s.mu.Lock()
	reviewer := s.state.ReviewerName
	emailID := s.state.Email.ID
	s.mu.Unlock()
	if reviewer == "" {
		return ErrBlocked
	}

	patch := docstore.ResolutionPatch{Resolved: !currentStatus}
	if patch.Resolved {
		at := s.now().UnixMilli()
		patch.ResolvedBy = &reviewer
		patch.ResolvedAt = &at
	}

	if err := s.store.Update(ctx, emailID, commentID, patch); err != nil {
		s.logger.Error("error resolving comment",
			slog.String("email_id", emailID),
			slog.String("comment_id", commentID),
			slog.Any("error", err))
		s.update(func(st *State) {
			st.Notice = NoticeResolveFailed
		})
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

// DeleteComment removes a comment from the selected email after confirm
// approves DeletePrompt. A declined or missing confirmation is a no-op.
func (s *Session) DeleteComment(ctx context.Context, commentID string, confirm ConfirmFunc) error {
	if err := s.checkBlocked(); err != nil {
		return err
	}
	if confirm == nil || !confirm(DeletePrompt) {
		return nil
	}

	s.mu.Lock()
	emailID := s.state.Email.ID
	s.mu.Unlock()

	if err := s.store.Delete(ctx, emailID, commentID); err != nil {
		s.logger.Error("error deleting comment",
			slog.String("email_id", emailID),
			slog.String("comment_id", commentID),
			slog.Any("error", err))
		s.update(func(st *State) {
			st.Notice = NoticeDeleteFailed
		})
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// Close releases the live query. Later selection changes fail with ErrSessionClosed.
func (s *Session) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	s.mu.Lock()
	s.generation++
	s.mu.Unlock()

	if s.sub != nil {
		s.sub.Cancel()
		s.sub = nil
	}
}

// update applies fn to the state of an unblocked session and notifies
func (s *Session) update(fn func(st *State)) error {
	s.mu.Lock()
	if s.state.ReviewerName == "" {
		s.mu.Unlock()
		return ErrBlocked
	}
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Session) checkBlocked() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ReviewerName == "" {
		return ErrBlocked
	}
	return nil
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
