package handler

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/auth/cipher"
	"github.com/RussPalms/docs-dev-0a/internal/session"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

type stubProvider struct {
	tokens *auth.TokenSet
	err    error
}

func (s *stubProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state) +
		"&code_challenge=" + url.QueryEscape(codeChallenge)
}

func (s *stubProvider) ExchangeCode(context.Context, string, string) (*auth.TokenSet, error) {
	return s.tokens, s.err
}

type stubResolver struct {
	user *user.User
	err  error
}

func (s *stubResolver) Resolve(context.Context, string, string) (*user.User, error) {
	return s.user, s.err
}

type memorySessionStore struct {
	sessions map[string]session.Session
	deleted  []string
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]session.Session)}
}

func (m *memorySessionStore) Create(_ context.Context, s session.Session) error {
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memorySessionStore) Get(_ context.Context, id string) (*session.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessionStore) Update(_ context.Context, s session.Session) error {
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memorySessionStore) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type fixture struct {
	router *gin.Engine
	store  *memorySessionStore
	tokens *session.TokenStore
}

func newFixture(t *testing.T, p *stubProvider, r *stubResolver) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var k fernet.Key
	require.NoError(t, k.Generate())
	c, err := cipher.New(k.Encode())
	require.NoError(t, err)

	tokens, err := session.NewTokenStore(c, false, false, true)
	require.NoError(t, err)

	store := newMemorySessionStore()
	h := New(p, auth.NewAuthenticator(p, r, tokens), store)

	router := gin.New()
	h.RegisterRoutes(router)

	return &fixture{router: router, store: store, tokens: tokens}
}

func callbackRequest(query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?"+query, nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "state-1"})
	req.AddCookie(&http.Cookie{Name: pkceCookieName, Value: "verifier-1"})
	return req
}

func TestLoginRedirectsWithStateAndPKCE(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubResolver{})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login", nil))

	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.NotEmpty(t, location.Query().Get("state"))
	require.NotEmpty(t, location.Query().Get("code_challenge"))

	cookies := w.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, c := range cookies {
		names[c.Name] = true
	}
	require.True(t, names[stateCookieName])
	require.True(t, names[pkceCookieName])
}

func TestPKCEChallengeMatchesVerifierCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/oauth/login", nil)

	challenge, err := generatePKCE(c)
	require.NoError(t, err)

	var verifier string
	for _, ck := range w.Result().Cookies() {
		if ck.Name == pkceCookieName {
			verifier = ck.Value
		}
	}
	require.NotEmpty(t, verifier)

	hash := sha256.Sum256([]byte(verifier))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(hash[:]), challenge)

	// the verifier round-trips through the cookie on the callback
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback", nil)
	req.AddCookie(&http.Cookie{Name: pkceCookieName, Value: verifier})
	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = req
	require.Equal(t, verifier, getPKCEVerifier(c2))
}

func TestCallbackSuccess(t *testing.T) {
	u := &user.User{ID: uuid.New(), Sub: "abc123", IsActive: true}
	f := newFixture(t,
		&stubProvider{tokens: &auth.TokenSet{AccessToken: "at-1", IDToken: "it-1", RefreshToken: "rt-1"}},
		&stubResolver{user: u},
	)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, callbackRequest("state=state-1&code=code-1"))

	require.Equal(t, http.StatusOK, w.Code)

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)

	sess, ok := f.store.sessions[sessionCookie.Value]
	require.True(t, ok)
	require.Equal(t, u.ID.String(), sess.UserID)
	require.True(t, sess.ExpiresAt.After(time.Now()))

	rt, err := f.tokens.RefreshToken(&sess)
	require.NoError(t, err)
	require.Equal(t, "rt-1", rt)
}

func TestCallbackInvalidState(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubResolver{})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, callbackRequest("state=other&code=code-1"))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, f.store.sessions)
}

func TestCallbackProviderError(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubResolver{})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, callbackRequest("state=state-1&error=access_denied"))

	// a provider denial must not bounce the browser back into the
	// login flow; it ends the attempt with a generic failure
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "authentication failed")
	require.NotContains(t, w.Body.String(), "access_denied")
	require.Empty(t, f.store.sessions)
}

func TestCallbackDisabledAccountRejectedGenerically(t *testing.T) {
	f := newFixture(t,
		&stubProvider{tokens: &auth.TokenSet{AccessToken: "at-1", IDToken: "it-1"}},
		&stubResolver{err: auth.ErrAccountDisabled},
	)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, callbackRequest("state=state-1&code=code-1"))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "authentication failed")
	require.NotContains(t, w.Body.String(), "disabled")
	require.Empty(t, f.store.sessions)
}

func TestCallbackDuplicateIdentity(t *testing.T) {
	f := newFixture(t,
		&stubProvider{tokens: &auth.TokenSet{AccessToken: "at-1", IDToken: "it-1"}},
		&stubResolver{err: user.ErrDuplicateIdentity},
	)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, callbackRequest("state=state-1&code=code-1"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Empty(t, f.store.sessions)
}

func TestLogoutDiscardsSessionAndTokens(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubResolver{})

	sess := session.Session{
		SessionID: "sid-1",
		UserID:    "uid-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.store.Create(context.Background(), sess))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-1"})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, f.store.sessions)
	require.Equal(t, []string{"sid-1"}, f.store.deleted)
}

func TestLogoutWithoutSessionIsIdempotent(t *testing.T) {
	f := newFixture(t, &stubProvider{}, &stubResolver{})

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
}
