package docstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
)

// FetchFunc loads the current comment list of an email, newest first
type FetchFunc func(ctx context.Context, emailID string) ([]models.Comment, error)

// Broker maintains live queries and pushes snapshots to them
type Broker struct {
	// Live queries: emailID -> set of subscriptions
	subscriptions map[string]map[*subscription]bool

	// Register requests from new subscriptions
	register chan *subscription

	// Unregister requests from cancelled subscriptions
	unregister chan *subscription

	// Emails whose comment list changed
	publish chan string

	// Closed when Run returns
	stopped chan struct{}

	fetch FetchFunc
	now   func() time.Time

	// Mutex for thread-safe reads of the registry
	mu sync.RWMutex

	logger *slog.Logger
}

type event struct {
	snapshot Snapshot
	err      error
}

// NewBroker creates a new Broker instance
func NewBroker(fetch FetchFunc, logger *slog.Logger) *Broker {
	return &Broker{
		subscriptions: make(map[string]map[*subscription]bool),
		register:      make(chan *subscription),
		unregister:    make(chan *subscription),
		publish:       make(chan string, 256),
		stopped:       make(chan struct{}),
		fetch:         fetch,
		now:           time.Now,
		logger:        logger,
	}
}

// Run starts the broker's main loop. It returns when ctx is cancelled;
// every open subscription is stopped at that point.
func (b *Broker) Run(ctx context.Context) {
	defer close(b.stopped)

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for emailID, subscribers := range b.subscriptions {
				for sub := range subscribers {
					sub.stop()
				}
				delete(b.subscriptions, emailID)
			}
			b.mu.Unlock()
			return

		case sub := <-b.register:
			b.mu.Lock()
			if b.subscriptions[sub.emailID] == nil {
				b.subscriptions[sub.emailID] = make(map[*subscription]bool)
			}
			b.subscriptions[sub.emailID][sub] = true
			b.mu.Unlock()
			if b.logger != nil {
				b.logger.Debug("live query opened", slog.String("email_id", sub.emailID))
			}
			b.deliver(ctx, sub.emailID, []*subscription{sub})

		case sub := <-b.unregister:
			b.mu.Lock()
			if subscribers, ok := b.subscriptions[sub.emailID]; ok {
				delete(subscribers, sub)
				if len(subscribers) == 0 {
					delete(b.subscriptions, sub.emailID)
				}
			}
			b.mu.Unlock()
			if b.logger != nil {
				b.logger.Debug("live query closed", slog.String("email_id", sub.emailID))
			}

		case emailID := <-b.publish:
			b.mu.RLock()
			subscribers := make([]*subscription, 0, len(b.subscriptions[emailID]))
			for sub := range b.subscriptions[emailID] {
				subscribers = append(subscribers, sub)
			}
			b.mu.RUnlock()
			if len(subscribers) > 0 {
				b.deliver(ctx, emailID, subscribers)
			}
		}
	}
}

// deliver reads the comment list once and offers it to every subscriber
func (b *Broker) deliver(ctx context.Context, emailID string, subscribers []*subscription) {
	comments, err := b.fetch(ctx, emailID)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("failed to read comments for live query",
				slog.String("email_id", emailID), slog.Any("error", err))
		}
		for _, sub := range subscribers {
			sub.offer(event{err: err})
		}
		return
	}

	readAt := b.now()
	for _, sub := range subscribers {
		own := make([]models.Comment, len(comments))
		copy(own, comments)
		sub.offer(event{snapshot: Snapshot{EmailID: emailID, Comments: own, ReadAt: readAt}})
	}
}

// Subscribe opens a live query on an email. The first snapshot is delivered
// as soon as the broker has read the current list.
func (b *Broker) Subscribe(ctx context.Context, emailID string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	sub := newSubscription(b, emailID, onSnapshot, onError)
	go sub.pump()

	select {
	case b.register <- sub:
		return sub, nil
	case <-b.stopped:
		sub.stop()
		return nil, ErrClosed
	case <-ctx.Done():
		sub.stop()
		return nil, ctx.Err()
	}
}

// Publish schedules a fresh snapshot for every live query on an email
func (b *Broker) Publish(emailID string) {
	select {
	case b.publish <- emailID:
	case <-b.stopped:
	}
}

// Count returns the number of live queries on an email
func (b *Broker) Count(emailID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions[emailID])
}

// subscription is one live query with its own delivery goroutine.
// Its mailbox holds at most one pending event; a newer snapshot replaces an undelivered one.
type subscription struct {
	broker     *Broker
	emailID    string
	onSnapshot SnapshotFunc
	onError    ErrorFunc

	pending chan event
	done    chan struct{}

	stopOnce   sync.Once
	cancelOnce sync.Once
}

func newSubscription(b *Broker, emailID string, onSnapshot SnapshotFunc, onError ErrorFunc) *subscription {
	return &subscription{
		broker:     b,
		emailID:    emailID,
		onSnapshot: onSnapshot,
		onError:    onError,
		pending:    make(chan event, 1),
		done:       make(chan struct{}),
	}
}

// EmailID returns the email the query is scoped to
func (s *subscription) EmailID() string {
	return s.emailID
}

// Cancel stops delivery immediately and removes the query from the broker
func (s *subscription) Cancel() {
	s.cancelOnce.Do(func() {
		s.stop()
		select {
		case s.broker.unregister <- s:
		case <-s.broker.stopped:
		}
	})
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *subscription) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// offer hands an event to the delivery goroutine, replacing any undelivered one
func (s *subscription) offer(ev event) {
	for {
		select {
		case s.pending <- ev:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

// pump delivers events in order until the subscription stops
func (s *subscription) pump() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.pending:
			if s.stopped() {
				return
			}
			if ev.err != nil {
				if s.onError != nil {
					s.onError(ev.err)
				}
				continue
			}
			if s.onSnapshot != nil {
				s.onSnapshot(ev.snapshot)
			}
		}
	}
}
