package websocket

import (
	"context"
	"log/slog"
	"sync"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Intents sent by the browser
const (
	MessageTypeSetName               MessageType = "set_name"
	MessageTypeSelectFunnel          MessageType = "select_funnel"
	MessageTypeSelectEmail           MessageType = "select_email"
	MessageTypePrevious              MessageType = "previous"
	MessageTypeNext                  MessageType = "next"
	MessageTypeViewMode              MessageType = "view_mode"
	MessageTypeToggleComposer        MessageType = "toggle_composer"
	MessageTypeDraft                 MessageType = "draft"
	MessageTypeSubmitComment         MessageType = "submit_comment"
	MessageTypeToggleResolved        MessageType = "toggle_resolved"
	MessageTypeToggleResolvedSection MessageType = "toggle_resolved_section"
	MessageTypeDeleteComment         MessageType = "delete_comment"
)

// Pushes sent by the server
const (
	MessageTypeRender MessageType = "render"
	MessageTypeAlert  MessageType = "alert"
	MessageTypeError  MessageType = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type MessageType `json:"type"`

	// Intent fields
	Funnel    string `json:"funnel,omitempty"`
	EmailID   string `json:"email_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"text,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
	Resolved  bool   `json:"resolved,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`

	// Push fields
	Regions    map[string]string `json:"regions,omitempty"`
	Blocked    bool              `json:"blocked,omitempty"`
	PreviewKey string            `json:"preview_key,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Hub maintains the set of connected review clients
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	stopped chan struct{}

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. When ctx is cancelled every client is
// disconnected and its review session closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.shutdown()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered", slog.Int("clients", h.Count()))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered", slog.Int("clients", h.Count()))
			}
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stopped:
		client.shutdown()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
