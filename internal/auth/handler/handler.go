package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/auth/provider"
	"github.com/RussPalms/docs-dev-0a/internal/logger"
	"github.com/RussPalms/docs-dev-0a/internal/session"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

const sessionTTL = 24 * time.Hour

type Handler struct {
	provider      provider.Exchanger
	authenticator *auth.Authenticator
	sessionStore  session.Store
}

func New(
	p provider.Exchanger,
	authenticator *auth.Authenticator,
	sessionStore session.Store,
) *Handler {
	return &Handler{
		provider:      p,
		authenticator: authenticator,
		sessionStore:  sessionStore,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login", h.login)
	r.GET("/oauth/callback", h.callback)
	r.POST("/auth/logout", h.Logout)
}

func (h *Handler) login(c *gin.Context) {
	state, err := generateState(c)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	codeChallenge, err := generatePKCE(c)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	authURL := h.provider.AuthCodeURL(state, codeChallenge)
	c.Redirect(http.StatusFound, authURL)
}

func (h *Handler) callback(c *gin.Context) {
	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"error": errParam,
			"desc":  c.Query("error_description"),
		})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oidc callback missing code and error", nil)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}

	sess := session.Session{}
	u, err := h.authenticator.Authenticate(
		c.Request.Context(),
		&sess,
		code,
		codeVerifier,
	)
	if err != nil {
		h.rejectAuthentication(c, err)
		return
	}

	sessionID, err := session.GenerateID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)

	sess.SessionID = sessionID
	sess.UserID = u.ID.String()
	sess.CreatedAt = now
	sess.ExpiresAt = expiresAt

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to persist session",
		})
		return
	}

	session.SetCookie(c.Writer, sessionID, expiresAt, session.DefaultOptions())

	logger.Info("login succeeded", map[string]any{
		"user_id": u.ID.String(),
		"ip":      c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"status": "authenticated",
	})
}

// rejectAuthentication maps flow failures to responses. The external
// message stays generic; the specific reason goes to the logs only.
func (h *Handler) rejectAuthentication(c *gin.Context, err error) {
	logger.Error("authentication rejected", map[string]any{
		"error": err.Error(),
		"ip":    c.ClientIP(),
	})

	if errors.Is(err, user.ErrDuplicateIdentity) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "authentication failed",
	})
}

// Logout discards the session and with it any stored OIDC tokens.
func (h *Handler) Logout(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		// best-effort: a missing session is already logged out
		_ = h.sessionStore.Delete(c.Request.Context(), cookie.Value)
	}

	session.ClearCookie(c.Writer, session.DefaultOptions())

	c.Status(http.StatusNoContent)
}
