package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RussPalms/docs-dev-0a/internal/session"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

var errNoSession = errors.New("no valid session")

type AuthMiddleware struct {
	Store session.Store
}

func NewAuthMiddleware(store session.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: store}
}

// Resolve returns the live session for the request, or errNoSession.
func (m *AuthMiddleware) Resolve(ctx context.Context, r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, errNoSession
	}

	sess, err := m.Store.Get(ctx, cookie.Value)
	if err != nil {
		return nil, err
	}
	if sess == nil || time.Now().After(sess.ExpiresAt) {
		return nil, errNoSession
	}

	return sess, nil
}
