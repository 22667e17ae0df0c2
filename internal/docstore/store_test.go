package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
	"github.com/welldanyogia/rampup-email-reviewer/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const waitFor = 2 * time.Second

func newTestStore(t *testing.T) *Store {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Comment{}))

	store := NewStore(repository.NewCommentRepository(db), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)
	t.Cleanup(func() {
		cancel()
		sqlDB.Close()
	})
	return store
}

// recorder collects snapshots delivered to a live query
type recorder struct {
	snapshots chan Snapshot
	errs      chan error
}

func newRecorder() *recorder {
	return &recorder{
		snapshots: make(chan Snapshot, 16),
		errs:      make(chan error, 16),
	}
}

func (r *recorder) onSnapshot(s Snapshot) { r.snapshots <- s }
func (r *recorder) onError(err error)    { r.errs <- err }

func (r *recorder) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-r.snapshots:
		return s
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

// nextWith waits for a snapshot with the given number of comments
func (r *recorder) nextWith(t *testing.T, n int) Snapshot {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case s := <-r.snapshots:
			if len(s.Comments) == n {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot with %d comments", n)
			return Snapshot{}
		}
	}
}

func TestStore_SubscribeDeliversInitialSnapshot(t *testing.T) {
	store := newTestStore(t)
	rec := newRecorder()

	sub, err := store.Subscribe(context.Background(), "cold-1", rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()

	snap := rec.next(t)
	assert.Equal(t, "cold-1", snap.EmailID)
	assert.Empty(t, snap.Comments)
	assert.Equal(t, "cold-1", sub.EmailID())
}

func TestStore_AddPushesSnapshotNewestFirst(t *testing.T) {
	store := newTestStore(t)
	rec := newRecorder()
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "cold-1", rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()
	rec.next(t)

	firstID, err := store.Add(ctx, "cold-1", NewComment{Text: "first", Author: "Alice", Timestamp: 100, EmailName: "01 - Pattern Interrupt"})
	require.NoError(t, err)
	assert.NotEmpty(t, firstID)
	_, err = store.Add(ctx, "cold-1", NewComment{Text: "second", Author: "Bob", Timestamp: 200})
	require.NoError(t, err)

	snap := rec.nextWith(t, 2)
	assert.Equal(t, "second", snap.Comments[0].Text)
	assert.Equal(t, "first", snap.Comments[1].Text)
	assert.Equal(t, firstID, snap.Comments[1].ID)
	assert.Equal(t, "01 - Pattern Interrupt", snap.Comments[1].EmailName)
}

func TestStore_WritesAreScopedByEmail(t *testing.T) {
	store := newTestStore(t)
	cold1 := newRecorder()
	cold2 := newRecorder()
	ctx := context.Background()

	sub1, err := store.Subscribe(ctx, "cold-1", cold1.onSnapshot, cold1.onError)
	require.NoError(t, err)
	defer sub1.Cancel()
	sub2, err := store.Subscribe(ctx, "cold-2", cold2.onSnapshot, cold2.onError)
	require.NoError(t, err)
	defer sub2.Cancel()
	cold1.next(t)
	cold2.next(t)

	_, err = store.Add(ctx, "cold-1", NewComment{Text: "only on cold-1", Author: "Alice", Timestamp: 1})
	require.NoError(t, err)

	cold1.nextWith(t, 1)
	select {
	case s := <-cold2.snapshots:
		t.Fatalf("unexpected snapshot for cold-2: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStore_UpdateAndDeletePublish(t *testing.T) {
	store := newTestStore(t)
	rec := newRecorder()
	ctx := context.Background()

	id, err := store.Add(ctx, "cold-3", NewComment{Text: "text", Author: "Alice", Timestamp: 1})
	require.NoError(t, err)

	sub, err := store.Subscribe(ctx, "cold-3", rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()
	rec.nextWith(t, 1)

	by := "Bob"
	at := int64(42)
	require.NoError(t, store.Update(ctx, "cold-3", id, ResolutionPatch{Resolved: true, ResolvedBy: &by, ResolvedAt: &at}))
	snap := rec.next(t)
	require.Len(t, snap.Comments, 1)
	assert.True(t, snap.Comments[0].Resolved)
	assert.Equal(t, "Bob", *snap.Comments[0].ResolvedBy)

	require.NoError(t, store.Delete(ctx, "cold-3", id))
	rec.nextWith(t, 0)
}

func TestStore_UpdateMissingComment(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), "cold-1", "missing", ResolutionPatch{})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = store.Delete(context.Background(), "cold-1", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_RejectsEmptyEmailID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Add(context.Background(), " ", NewComment{Text: "x"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = store.Subscribe(context.Background(), "", nil, nil)
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestStore_CancelStopsDelivery(t *testing.T) {
	store := newTestStore(t)
	rec := newRecorder()
	ctx := context.Background()

	sub, err := store.Subscribe(ctx, "cold-1", rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	rec.next(t)

	sub.Cancel()
	sub.Cancel()
	assert.Eventually(t, func() bool { return store.Broker().Count("cold-1") == 0 }, waitFor, 10*time.Millisecond)

	_, err = store.Add(ctx, "cold-1", NewComment{Text: "after cancel", Author: "Alice", Timestamp: 1})
	require.NoError(t, err)

	select {
	case s := <-rec.snapshots:
		t.Fatalf("unexpected snapshot after cancel: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_FetchErrorGoesToErrorCallback(t *testing.T) {
	fetchErr := errors.New("database unavailable")
	broker := NewBroker(func(ctx context.Context, emailID string) ([]models.Comment, error) {
		return nil, fetchErr
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)

	rec := newRecorder()
	sub, err := broker.Subscribe(context.Background(), "cold-1", rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer sub.Cancel()

	select {
	case err := <-rec.errs:
		assert.ErrorIs(t, err, fetchErr)
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for error")
	}
}

func TestBroker_SubscribeAfterStopReturnsErrClosed(t *testing.T) {
	broker := NewBroker(func(ctx context.Context, emailID string) ([]models.Comment, error) {
		return nil, nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		broker.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	_, err := broker.Subscribe(context.Background(), "cold-1", nil, nil)
	assert.ErrorIs(t, err, ErrClosed)

	// Publishing to a stopped broker must not block
	broker.Publish("cold-1")
}

func TestBroker_SlowSubscriberGetsLatestSnapshot(t *testing.T) {
	var mu sync.Mutex
	version := 0
	broker := NewBroker(func(ctx context.Context, emailID string) ([]models.Comment, error) {
		mu.Lock()
		defer mu.Unlock()
		comments := make([]models.Comment, version)
		return comments, nil
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Run(ctx)

	release := make(chan struct{})
	received := make(chan int, 16)
	sub, err := broker.Subscribe(context.Background(), "cold-1", func(s Snapshot) {
		<-release
		received <- len(s.Comments)
	}, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	for i := 1; i <= 5; i++ {
		mu.Lock()
		version = i
		mu.Unlock()
		broker.Publish("cold-1")
	}
	close(release)

	last := -1
	deadline := time.After(waitFor)
	for last != 5 {
		select {
		case n := <-received:
			assert.GreaterOrEqual(t, n, last, "snapshots must not go backwards")
			last = n
		case <-deadline:
			t.Fatalf("latest snapshot never delivered, last=%d", last)
		}
	}
}
