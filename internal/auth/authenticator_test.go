package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RussPalms/docs-dev-0a/internal/auth/cipher"
	"github.com/RussPalms/docs-dev-0a/internal/session"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

type stubExchanger struct {
	tokens *TokenSet
	err    error
}

func (s *stubExchanger) ExchangeCode(context.Context, string, string) (*TokenSet, error) {
	return s.tokens, s.err
}

type stubResolver struct {
	user *user.User
	err  error

	calls int
}

func (s *stubResolver) Resolve(context.Context, string, string) (*user.User, error) {
	s.calls++
	return s.user, s.err
}

func testTokenStore(t *testing.T, storeRefresh bool) *session.TokenStore {
	t.Helper()

	var k fernet.Key
	require.NoError(t, k.Generate())
	c, err := cipher.New(k.Encode())
	require.NoError(t, err)

	ts, err := session.NewTokenStore(c, false, false, storeRefresh)
	require.NoError(t, err)
	return ts
}

func TestAuthenticateSuccessStoresRefreshToken(t *testing.T) {
	u := &user.User{ID: uuid.New(), Sub: "abc123", IsActive: true}
	tokens := testTokenStore(t, true)
	a := NewAuthenticator(
		&stubExchanger{tokens: &TokenSet{AccessToken: "at-1", IDToken: "it-1", RefreshToken: "rt-1"}},
		&stubResolver{user: u},
		tokens,
	)

	sess := &session.Session{}
	got, err := a.Authenticate(context.Background(), sess, "code", "verifier")
	require.NoError(t, err)
	require.Equal(t, u, got)

	rt, err := tokens.RefreshToken(sess)
	require.NoError(t, err)
	require.Equal(t, "rt-1", rt)
}

func TestAuthenticateExchangeFailureStopsEarly(t *testing.T) {
	resolver := &stubResolver{user: &user.User{}}
	a := NewAuthenticator(
		&stubExchanger{err: errors.New("exchange failed")},
		resolver,
		testTokenStore(t, true),
	)

	sess := &session.Session{}
	_, err := a.Authenticate(context.Background(), sess, "code", "verifier")
	require.Error(t, err)
	require.Zero(t, resolver.calls)
	require.Empty(t, sess.Values)
}

func TestAuthenticateResolutionFailurePersistsNothing(t *testing.T) {
	a := NewAuthenticator(
		&stubExchanger{tokens: &TokenSet{AccessToken: "at-1", IDToken: "it-1", RefreshToken: "rt-1"}},
		&stubResolver{err: ErrAccountDisabled},
		testTokenStore(t, true),
	)

	sess := &session.Session{}
	_, err := a.Authenticate(context.Background(), sess, "code", "verifier")
	require.ErrorIs(t, err, ErrAccountDisabled)
	require.Empty(t, sess.Values)
}

func TestAuthenticateRefreshStorageDisabled(t *testing.T) {
	tokens := testTokenStore(t, false)
	a := NewAuthenticator(
		&stubExchanger{tokens: &TokenSet{AccessToken: "at-1", IDToken: "it-1", RefreshToken: "rt-1"}},
		&stubResolver{user: &user.User{ID: uuid.New(), IsActive: true}},
		tokens,
	)

	sess := &session.Session{}
	_, err := a.Authenticate(context.Background(), sess, "code", "verifier")
	require.NoError(t, err)
	require.Empty(t, sess.Get(session.KeyRefreshToken))
}
