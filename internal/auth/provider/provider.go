package provider

import (
	"context"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
)

// Exchanger defines the contract for the external OIDC code exchange.
// Implementations exchange the authorization code, verify the ID token
// (signature, audience, issuer, expiry) and return the raw tokens.
// They must not perform user resolution or session management.
type Exchanger interface {
	// AuthCodeURL returns the provider authorization URL.
	// State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode exchanges the authorization code for the token set.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.TokenSet, error)
}
