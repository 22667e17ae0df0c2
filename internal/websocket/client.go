package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/rampup-email-reviewer/internal/catalog"
	"github.com/welldanyogia/rampup-email-reviewer/internal/review"
	"github.com/welldanyogia/rampup-email-reviewer/internal/validator"
	"github.com/welldanyogia/rampup-email-reviewer/internal/view"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. A comment may hold
	// validator.MaxCommentLength runes of up to four bytes each.
	maxMessageSize = 32 * 1024
)

// Client connects one browser tab to its review session
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	renderer *view.Renderer
	catalog  *catalog.Catalog
	logger   *slog.Logger

	session *review.Session

	// dirty holds at most one pending render request
	dirty chan struct{}

	// done is closed when the client is shut down
	done      chan struct{}
	closeOnce sync.Once

	// Owned by RenderLoop
	last         map[string]string
	lastBlocked  bool
	lastDraftRev uint64
	lastComposer bool
	rendered     bool
}

// NewClient creates a new Client instance
func NewClient(hub *Hub, conn *websocket.Conn, renderer *view.Renderer, cat *catalog.Catalog, logger *slog.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		renderer: renderer,
		catalog:  cat,
		logger:   logger,
		dirty:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Attach binds the review session driven by this client
func (c *Client) Attach(session *review.Session) {
	c.session = session
	c.Invalidate()
}

// Invalidate schedules a render. It never blocks, so it is safe to use as
// the session's change callback.
func (c *Client) Invalidate() {
	select {
	case c.dirty <- struct{}{}:
	default:
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump reads intents from the connection until it closes, then
// releases the review session.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
		if c.session != nil {
			c.session.Close()
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.logger != nil {
					c.logger.Error("websocket read error", slog.Any("error", err))
				}
			}
			break
		}

		c.handleMessage(ctx, message)
	}
}

// WritePump pumps messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RenderLoop redraws the session whenever it changes and pushes the
// regions that differ from the previous render.
func (c *Client) RenderLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.dirty:
			c.render()
		}
	}
}

func (c *Client) render() {
	if c.session == nil {
		return
	}

	st := c.session.State()
	page := view.Build(st, c.catalog, nil)
	regions, err := c.renderer.RenderRegions(page)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("failed to render session", slog.Any("error", err))
		}
		c.sendError("render failed")
		return
	}

	changed := view.Diff(c.last, regions)
	if !c.rendered || page.Blocked != c.lastBlocked {
		changed = regions
	} else if st.ComposerOpen && c.lastComposer && st.DraftRev == c.lastDraftRev {
		// The open textarea already holds what the reviewer typed
		delete(changed, "composer")
	}
	c.last = regions
	c.lastBlocked = page.Blocked
	c.lastDraftRev = st.DraftRev
	c.lastComposer = st.ComposerOpen
	c.rendered = true

	if len(changed) > 0 {
		c.push(WSMessage{
			Type:       MessageTypeRender,
			Regions:    changed,
			Blocked:    page.Blocked,
			PreviewKey: page.PreviewKey,
		})
	}

	if notice := c.session.TakeNotice(); notice != "" {
		c.push(WSMessage{Type: MessageTypeAlert, Message: notice})
	}
}

// handleMessage dispatches one intent to the review session
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}
	if c.session == nil {
		c.sendError("session not ready")
		return
	}

	var err error
	switch msg.Type {
	case MessageTypeSetName:
		err = c.session.SetReviewerName(ctx, msg.Name)
	case MessageTypeSelectFunnel:
		err = c.session.SelectFunnel(ctx, catalog.FunnelID(msg.Funnel))
	case MessageTypeSelectEmail:
		err = c.session.SelectEmail(ctx, msg.EmailID)
	case MessageTypePrevious:
		err = c.session.Retreat(ctx)
	case MessageTypeNext:
		err = c.session.Advance(ctx)
	case MessageTypeViewMode:
		err = c.session.SetViewMode(review.ViewMode(msg.Mode))
	case MessageTypeToggleComposer:
		err = c.session.ToggleComposer()
	case MessageTypeDraft:
		err = c.session.SetDraft(msg.Text)
	case MessageTypeSubmitComment:
		err = c.session.SubmitComment(ctx, msg.Text)
	case MessageTypeToggleResolved:
		if msg.CommentID == "" {
			c.sendError("comment_id is required")
			return
		}
		err = c.session.ToggleResolved(ctx, msg.CommentID, msg.Resolved)
	case MessageTypeToggleResolvedSection:
		err = c.session.ToggleResolvedSection()
	case MessageTypeDeleteComment:
		if msg.CommentID == "" {
			c.sendError("comment_id is required")
			return
		}
		confirmed := msg.Confirmed
		err = c.session.DeleteComment(ctx, msg.CommentID, func(string) bool { return confirmed })
	default:
		c.sendError("unknown message type")
		return
	}

	if err == nil {
		return
	}
	if isRejection(err) {
		c.sendError(err.Error())
		return
	}
	// Store failures are logged and raised as notices by the session
	if c.logger != nil {
		c.logger.Debug("intent failed", slog.String("type", string(msg.Type)), slog.Any("error", err))
	}
}

// isRejection reports whether err is an input problem rather than a store failure
func isRejection(err error) bool {
	for _, target := range []error{
		review.ErrBlocked,
		review.ErrEmptyComment,
		review.ErrEmptyName,
		review.ErrUnknownFunnel,
		review.ErrUnknownEmail,
		review.ErrInvalidViewMode,
		review.ErrSessionClosed,
		validator.ErrInputTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// push queues a message, waiting for room unless the client is shut down
func (c *Client) push(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("failed to marshal message", slog.Any("error", err))
		}
		return
	}

	select {
	case c.send <- data:
	case <-c.done:
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errMsg string) {
	msg := WSMessage{
		Type:  MessageTypeError,
		Error: errMsg,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, skip
	}
}
