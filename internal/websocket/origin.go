package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/rampup-email-reviewer/internal/logger"
)

// NewSecureUpgrader creates a WebSocket upgrader with origin validation.
// Same-origin requests are always accepted; cross-origin requests must
// match one of allowedOrigins.
func NewSecureUpgrader(allowedOrigins []string, secLog *logger.SecurityLogger) websocket.Upgrader {
	// Filter empty strings
	filtered := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			filtered = append(filtered, origin)
		}
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Allow requests without Origin (non-browser clients)
			if origin == "" {
				return true
			}

			// The page shell and the socket are served from the same host
			if sameHost(origin, r.Host) {
				return true
			}

			for _, allowed := range filtered {
				if allowed == origin {
					return true
				}
			}

			if secLog != nil {
				secLog.InvalidOrigin(r.RemoteAddr, origin)
			}
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

func sameHost(origin, host string) bool {
	for _, scheme := range []string{"http://", "https://"} {
		if strings.TrimPrefix(origin, scheme) != origin {
			return strings.EqualFold(strings.TrimPrefix(origin, scheme), host)
		}
	}
	return false
}

// DefaultUpgrader returns an upgrader that allows all origins (for development)
func DefaultUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
