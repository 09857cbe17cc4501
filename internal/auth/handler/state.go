package handler

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
)

const stateCookieName = "__oauth_state"

func generateState(c *gin.Context) (string, error) {
	state, err := newFlowSecret()
	if err != nil {
		return "", err
	}
	setFlowCookie(c, stateCookieName, state)
	return state, nil
}

func validateState(c *gin.Context) bool {
	stateQuery := c.Query("state")
	if stateQuery == "" {
		return false
	}

	stateCookie := flowCookieValue(c, stateCookieName)
	if stateCookie == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(stateCookie), []byte(stateQuery)) == 1
}
