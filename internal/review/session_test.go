package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/docstore"
	"github.com/welldanyogia/rampup-email-reviewer/internal/identity"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
)

// fakeClient records calls and lets tests deliver snapshots by hand
type fakeClient struct {
	mu        sync.Mutex
	subs      []*fakeSubscription
	added     []docstore.NewComment
	updates   []docstore.ResolutionPatch
	deleted   []string
	addErr    error
	updateErr error
	deleteErr error
	subErr    error
}

type fakeSubscription struct {
	emailID    string
	onSnapshot docstore.SnapshotFunc
	onError    docstore.ErrorFunc

	mu        sync.Mutex
	cancelled int
}

func (f *fakeSubscription) EmailID() string { return f.emailID }

func (f *fakeSubscription) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

func (f *fakeSubscription) Cancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled > 0
}

func (f *fakeSubscription) push(comments ...models.Comment) {
	f.onSnapshot(docstore.Snapshot{EmailID: f.emailID, Comments: comments, ReadAt: time.Now()})
}

func (c *fakeClient) Subscribe(ctx context.Context, emailID string, onSnapshot docstore.SnapshotFunc, onError docstore.ErrorFunc) (docstore.Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return nil, c.subErr
	}
	sub := &fakeSubscription{emailID: emailID, onSnapshot: onSnapshot, onError: onError}
	c.subs = append(c.subs, sub)
	return sub, nil
}

func (c *fakeClient) Add(ctx context.Context, emailID string, comment docstore.NewComment) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return "", c.addErr
	}
	c.added = append(c.added, comment)
	return "new-id", nil
}

func (c *fakeClient) Update(ctx context.Context, emailID, commentID string, patch docstore.ResolutionPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updates = append(c.updates, patch)
	return nil
}

func (c *fakeClient) Delete(ctx context.Context, emailID, commentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, commentID)
	return nil
}

func (c *fakeClient) List(ctx context.Context, emailID string) ([]models.Comment, error) {
	return nil, nil
}

func (c *fakeClient) sub(i int) *fakeSubscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[i]
}

func (c *fakeClient) subCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newFakeSession(t *testing.T, name string) (*Session, *fakeClient) {
	t.Helper()
	client := &fakeClient{}
	s, err := NewSession(context.Background(), catalog.Default(), client, identity.NewMemoryStore(name),
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, client
}

func TestNewSession_Defaults(t *testing.T) {
	s, client := newFakeSession(t, "Alice")

	st := s.State()
	assert.Equal(t, catalog.ColdProspects, st.Funnel)
	assert.Equal(t, "cold-1", st.Email.ID)
	assert.Equal(t, ViewDesktop, st.ViewMode)
	assert.Equal(t, "Alice", st.ReviewerName)
	assert.Equal(t, 0, st.Index)
	assert.Equal(t, 6, st.Count)
	assert.False(t, st.ShowResolved)
	assert.False(t, st.Blocked())

	require.Equal(t, 1, client.subCount())
	assert.Equal(t, "cold-1", client.sub(0).EmailID())
}

func TestNewSession_SubscribeFailure(t *testing.T) {
	client := &fakeClient{subErr: errors.New("store offline")}
	_, err := NewSession(context.Background(), catalog.Default(), client, identity.NewMemoryStore("Alice"))
	assert.Error(t, err)
}

func TestSession_BlockedUntilNameSet(t *testing.T) {
	s, _ := newFakeSession(t, "")
	ctx := context.Background()

	assert.True(t, s.State().Blocked())
	assert.ErrorIs(t, s.Advance(ctx), ErrBlocked)
	assert.ErrorIs(t, s.SelectFunnel(ctx, catalog.ExistingClients), ErrBlocked)
	assert.ErrorIs(t, s.ToggleComposer(), ErrBlocked)
	assert.ErrorIs(t, s.SetViewMode(ViewMobile), ErrBlocked)
	assert.ErrorIs(t, s.SubmitComment(ctx, "hello"), ErrNoReviewer)
	assert.ErrorIs(t, s.SubmitComment(ctx, "hello"), ErrBlocked)
	assert.ErrorIs(t, s.ToggleResolved(ctx, "c1", false), ErrBlocked)
	assert.ErrorIs(t, s.DeleteComment(ctx, "c1", func(string) bool { return true }), ErrBlocked)
	assert.Equal(t, "cold-1", s.State().Email.ID)

	assert.ErrorIs(t, s.SetReviewerName(ctx, "   "), ErrEmptyName)
	assert.True(t, s.State().Blocked())

	require.NoError(t, s.SetReviewerName(ctx, "  Alice  "))
	assert.Equal(t, "Alice", s.State().ReviewerName)
	assert.False(t, s.State().Blocked())
	assert.NoError(t, s.Advance(ctx))
}

func TestSession_SetReviewerNamePersists(t *testing.T) {
	store := identity.NewMemoryStore("")
	s, err := NewSession(context.Background(), catalog.Default(), &fakeClient{}, store)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetReviewerName(context.Background(), "Bob"))
	name, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)

	// A new session for the same identity starts unblocked
	again, err := NewSession(context.Background(), catalog.Default(), &fakeClient{}, store)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, "Bob", again.State().ReviewerName)
}

func TestSession_SelectFunnelResetsToFirstEmail(t *testing.T) {
	for _, funnel := range catalog.Default().Funnels() {
		t.Run(string(funnel.ID), func(t *testing.T) {
			s, _ := newFakeSession(t, "Alice")
			ctx := context.Background()

			require.NoError(t, s.Advance(ctx))
			require.NoError(t, s.SelectFunnel(ctx, funnel.ID))

			st := s.State()
			assert.Equal(t, funnel.ID, st.Funnel)
			assert.Equal(t, funnel.First(), st.Email)
			assert.Equal(t, 0, st.Index)
			assert.Equal(t, len(funnel.Emails), st.Count)
		})
	}
}

func TestSession_SelectUnknown(t *testing.T) {
	s, _ := newFakeSession(t, "Alice")
	ctx := context.Background()

	assert.ErrorIs(t, s.SelectFunnel(ctx, "vip"), ErrUnknownFunnel)
	assert.ErrorIs(t, s.SelectEmail(ctx, "existing-1"), ErrUnknownEmail)
	assert.Equal(t, "cold-1", s.State().Email.ID)
}

func TestSession_NavigationBoundaries(t *testing.T) {
	s, _ := newFakeSession(t, "Alice")
	ctx := context.Background()
	funnel := catalog.Default().MustFunnel(catalog.ColdProspects)

	require.NoError(t, s.Retreat(ctx))
	assert.Equal(t, 0, s.State().Index, "retreat at the first email is a no-op")
	assert.False(t, s.State().HasPrevious())

	for i := 1; i < len(funnel.Emails); i++ {
		require.NoError(t, s.Advance(ctx))
		st := s.State()
		assert.Equal(t, i, st.Index)
		assert.Equal(t, funnel.Emails[i].ID, st.Email.ID)
	}

	st := s.State()
	assert.False(t, st.HasNext())
	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, len(funnel.Emails)-1, s.State().Index, "advance at the last email is a no-op")

	require.NoError(t, s.Retreat(ctx))
	assert.Equal(t, len(funnel.Emails)-2, s.State().Index)
}

func TestSession_SelectSameEmailKeepsSubscription(t *testing.T) {
	s, client := newFakeSession(t, "Alice")

	require.NoError(t, s.SelectEmail(context.Background(), "cold-1"))
	assert.Equal(t, 1, client.subCount())
	assert.False(t, client.sub(0).Cancelled())
}

func TestSession_SwitchCancelsPreviousSubscription(t *testing.T) {
	s, client := newFakeSession(t, "Alice")
	ctx := context.Background()

	require.NoError(t, s.SelectEmail(ctx, "cold-2"))
	require.Equal(t, 2, client.subCount())
	assert.True(t, client.sub(0).Cancelled())
	assert.False(t, client.sub(1).Cancelled())
	assert.Equal(t, "cold-2", client.sub(1).EmailID())
}

func TestSession_LateSnapshotAfterSwitchIsDropped(t *testing.T) {
	s, client := newFakeSession(t, "Alice")
	ctx := context.Background()

	old := client.sub(0)
	old.push(models.Comment{ID: "a", EmailID: "cold-1", Text: "on cold-1", Timestamp: 1})
	require.Len(t, s.State().Comments, 1)

	require.NoError(t, s.SelectEmail(ctx, "cold-2"))
	assert.Empty(t, s.State().Comments, "switching clears the previous email's comments")

	old.push(models.Comment{ID: "b", EmailID: "cold-1", Text: "late", Timestamp: 2})
	assert.Empty(t, s.State().Comments)

	client.sub(1).push(models.Comment{ID: "c", EmailID: "cold-2", Text: "on cold-2", Timestamp: 3})
	st := s.State()
	require.Len(t, st.Comments, 1)
	assert.Equal(t, "on cold-2", st.Comments[0].Text)

	// Returning to cold-1 opens a new query; the first one stays silent
	require.NoError(t, s.SelectEmail(ctx, "cold-1"))
	old.push(models.Comment{ID: "d", EmailID: "cold-1", Text: "stale", Timestamp: 4})
	assert.Empty(t, s.State().Comments)
}

func TestSession_SubscriptionErrorKeepsLastList(t *testing.T) {
	s, client := newFakeSession(t, "Alice")

	sub := client.sub(0)
	sub.push(models.Comment{ID: "a", EmailID: "cold-1", Text: "kept", Timestamp: 1})
	sub.onError(errors.New("permission denied"))

	st := s.State()
	require.Len(t, st.Comments, 1)
	assert.Equal(t, "kept", st.Comments[0].Text)
}

func TestSession_SubmitComment(t *testing.T) {
	s, client := newFakeSession(t, "Alice")
	ctx := context.Background()

	require.NoError(t, s.ToggleComposer())
	require.NoError(t, s.SetDraft("  Fix the CTA color  "))
	require.NoError(t, s.SubmitComment(ctx, "  Fix the CTA color  "))

	require.Len(t, client.added, 1)
	added := client.added[0]
	assert.Equal(t, "Fix the CTA color", added.Text)
	assert.Equal(t, "Alice", added.Author)
	assert.False(t, added.Resolved)
	assert.Equal(t, "01 - Pattern Interrupt", added.EmailName)
	assert.LessOrEqual(t, added.Timestamp, time.Now().UnixMilli())

	st := s.State()
	assert.Empty(t, st.Draft)
	assert.Equal(t, uint64(1), st.DraftRev)
	assert.False(t, st.ComposerOpen)
}

func TestSession_SetDraftKeepsDraftRev(t *testing.T) {
	s, _ := newFakeSession(t, "Alice")

	require.NoError(t, s.ToggleComposer())
	require.NoError(t, s.SetDraft("half"))
	require.NoError(t, s.SetDraft("half written"))

	st := s.State()
	assert.Equal(t, "half written", st.Draft)
	assert.Zero(t, st.DraftRev)
}

func TestSession_SubmitEmptyCommentIsRejected(t *testing.T) {
	s, client := newFakeSession(t, "Alice")

	assert.ErrorIs(t, s.SubmitComment(context.Background(), " \n\t "), ErrEmptyComment)
	assert.Empty(t, client.added)
}

func TestSession_SubmitFailureKeepsDraftAndRaisesNotice(t *testing.T) {
	s, client := newFakeSession(t, "Alice")
	client.addErr = errors.New("unavailable")

	require.NoError(t, s.ToggleComposer())
	err := s.SubmitComment(context.Background(), "retry me")
	assert.Error(t, err)

	st := s.State()
	assert.Equal(t, "retry me", st.Draft)
	assert.Equal(t, uint64(1), st.DraftRev)
	assert.True(t, st.ComposerOpen)
	assert.Equal(t, NoticeAddFailed, st.Notice)

	assert.Equal(t, NoticeAddFailed, s.TakeNotice())
	assert.Empty(t, s.TakeNotice())
}

func TestSession_ToggleResolvedRoundTrip(t *testing.T) {
	s, client := newFakeSession(t, "Bob")
	ctx := context.Background()

	require.NoError(t, s.ToggleResolved(ctx, "c1", false))
	require.NoError(t, s.ToggleResolved(ctx, "c1", true))

	require.Len(t, client.updates, 2)
	resolve := client.updates[0]
	assert.True(t, resolve.Resolved)
	require.NotNil(t, resolve.ResolvedBy)
	require.NotNil(t, resolve.ResolvedAt)
	assert.Equal(t, "Bob", *resolve.ResolvedBy)
	assert.Equal(t, fixedNow.UnixMilli(), *resolve.ResolvedAt)

	reopen := client.updates[1]
	assert.False(t, reopen.Resolved)
	assert.Nil(t, reopen.ResolvedBy)
	assert.Nil(t, reopen.ResolvedAt)
}

func TestSession_ToggleResolvedFailureRaisesNotice(t *testing.T) {
	s, client := newFakeSession(t, "Bob")
	client.updateErr = errors.New("unavailable")

	assert.Error(t, s.ToggleResolved(context.Background(), "c1", false))
	assert.Equal(t, NoticeResolveFailed, s.State().Notice)
}

func TestSession_DeleteRequiresConfirmation(t *testing.T) {
	s, client := newFakeSession(t, "Alice")
	ctx := context.Background()

	var asked string
	require.NoError(t, s.DeleteComment(ctx, "c1", func(prompt string) bool {
		asked = prompt
		return false
	}))
	assert.Equal(t, DeletePrompt, asked)
	assert.Empty(t, client.deleted)

	require.NoError(t, s.DeleteComment(ctx, "c1", nil))
	assert.Empty(t, client.deleted)

	require.NoError(t, s.DeleteComment(ctx, "c1", func(string) bool { return true }))
	assert.Equal(t, []string{"c1"}, client.deleted)
}

func TestSession_DeleteFailureRaisesNotice(t *testing.T) {
	s, client := newFakeSession(t, "Alice")
	client.deleteErr = errors.New("unavailable")

	assert.Error(t, s.DeleteComment(context.Background(), "c1", func(string) bool { return true }))
	assert.Equal(t, NoticeDeleteFailed, s.State().Notice)
}

func TestSession_LocalViewState(t *testing.T) {
	s, _ := newFakeSession(t, "Alice")

	require.NoError(t, s.SetViewMode(ViewMobile))
	assert.Equal(t, ViewMobile, s.State().ViewMode)
	assert.ErrorIs(t, s.SetViewMode("tablet"), ErrInvalidViewMode)
	assert.Equal(t, ViewMobile, s.State().ViewMode)

	require.NoError(t, s.ToggleResolvedSection())
	assert.True(t, s.State().ShowResolved)
	require.NoError(t, s.ToggleResolvedSection())
	assert.False(t, s.State().ShowResolved)

	require.NoError(t, s.ToggleComposer())
	assert.True(t, s.State().ComposerOpen)
}

func TestSession_OnChangeCalledForSnapshots(t *testing.T) {
	client := &fakeClient{}
	var mu sync.Mutex
	calls := 0
	s, err := NewSession(context.Background(), catalog.Default(), client, identity.NewMemoryStore("Alice"),
		WithOnChange(func() {
			mu.Lock()
			calls++
			mu.Unlock()
		}))
	require.NoError(t, err)
	defer s.Close()

	client.sub(0).push(models.Comment{ID: "a", EmailID: "cold-1"})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestSession_CloseCancelsAndRejectsNavigation(t *testing.T) {
	s, client := newFakeSession(t, "Alice")

	s.Close()
	s.Close()
	assert.True(t, client.sub(0).Cancelled())
	assert.ErrorIs(t, s.Advance(context.Background()), ErrSessionClosed)

	client.sub(0).push(models.Comment{ID: "late", EmailID: "cold-1"})
	assert.Empty(t, s.State().Comments)
}

func TestState_ActiveAndResolvedPartitionComments(t *testing.T) {
	by := "Bob"
	at := int64(5)
	comments := []models.Comment{
		{ID: "1", Timestamp: 50},
		{ID: "2", Timestamp: 40, Resolved: true, ResolvedBy: &by, ResolvedAt: &at},
		{ID: "3", Timestamp: 30},
		{ID: "4", Timestamp: 20, Resolved: true, ResolvedBy: &by, ResolvedAt: &at},
		{ID: "5", Timestamp: 10},
	}
	st := State{Comments: comments}

	active := st.ActiveComments()
	resolved := st.ResolvedComments()
	assert.Equal(t, []string{"1", "3", "5"}, ids(active))
	assert.Equal(t, []string{"2", "4"}, ids(resolved))

	seen := map[string]int{}
	for _, c := range append(active, resolved...) {
		seen[c.ID]++
	}
	assert.Len(t, seen, len(comments))
	for id, n := range seen {
		assert.Equal(t, 1, n, "comment %s appears more than once", id)
	}

	assert.Empty(t, State{}.ActiveComments())
	assert.Empty(t, State{}.ResolvedComments())
}

func ids(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}
