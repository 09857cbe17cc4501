package handler

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/gin-gonic/gin"
)

const pkceCookieName = "__oauth_pkce"

// generatePKCE stores a fresh verifier in the flow cookie and returns
// the S256 challenge for the authorization request.
func generatePKCE(c *gin.Context) (string, error) {
	verifier, err := newFlowSecret()
	if err != nil {
		return "", err
	}

	setFlowCookie(c, pkceCookieName, verifier)

	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:]), nil
}

func getPKCEVerifier(c *gin.Context) string {
	return flowCookieValue(c, pkceCookieName)
}
