package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session. Besides the
// identity pointer it carries a small string-keyed payload (Values)
// used for per-session state such as the OIDC tokens.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"` // absolute expiry time

	Values map[string]string `json:"values,omitempty"`
}

// Get returns the stored value for key, or "" when absent.
func (s *Session) Get(key string) string {
	return s.Values[key]
}

// Set stores value under key, allocating the payload map on first use.
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[key] = value
}

// Store defines how sessions are persisted and retrieved.
// Implementations (e.g., Redis) must remain stateless and opaque.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
