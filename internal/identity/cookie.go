package identity

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	// CookieName is the name of the cookie carrying the browser token
	CookieName = "gso-reviewer"

	tokenKey = "token"

	// cookieMaxAge keeps the token for a year
	cookieMaxAge = 86400 * 365
)

// NewCookieStore creates the signed cookie store for browser tokens
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// EnsureToken returns the browser token of the request, issuing a new one
// when the request carries none. It must run before the response is written.
func EnsureToken(store sessions.Store, w http.ResponseWriter, r *http.Request) (string, error) {
	session, err := store.Get(r, CookieName)
	if err != nil && session == nil {
		return "", fmt.Errorf("failed to read reviewer cookie: %w", err)
	}

	if token, ok := session.Values[tokenKey].(string); ok && token != "" {
		return token, nil
	}

	token := uuid.NewString()
	session.Values[tokenKey] = token
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to write reviewer cookie: %w", err)
	}
	return token, nil
}

// Token returns the browser token of the request without issuing one
func Token(store sessions.Store, r *http.Request) (string, bool) {
	session, err := store.Get(r, CookieName)
	if err != nil || session == nil {
		return "", false
	}
	token, ok := session.Values[tokenKey].(string)
	return token, ok && token != ""
}
