package auth

import (
	"context"

	"github.com/RussPalms/docs-dev-0a/internal/session"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

// CodeExchanger is the external OIDC code-exchange contract
// (implemented by the provider package). The implementation verifies
// the ID token before returning.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenSet, error)
}

// UserResolver maps the exchanged tokens to a local user (implemented
// by the resolver package).
type UserResolver interface {
	Resolve(ctx context.Context, accessToken, idToken string) (*user.User, error)
}

// Authenticator drives the end-to-end authorization-code flow:
// exchange, userinfo fetch and verification, user resolution, token
// persistence. It is the only entry point external callers invoke.
type Authenticator struct {
	exchanger CodeExchanger
	resolver  UserResolver
	tokens    *session.TokenStore
}

func NewAuthenticator(exchanger CodeExchanger, resolver UserResolver, tokens *session.TokenStore) *Authenticator {
	return &Authenticator{
		exchanger: exchanger,
		resolver:  resolver,
		tokens:    tokens,
	}
}

// Authenticate runs one authentication attempt. The first failure
// aborts the whole attempt: there is no partially authenticated state
// and no token is persisted unless the user resolved successfully.
func (a *Authenticator) Authenticate(
	ctx context.Context,
	sess *session.Session,
	code string,
	codeVerifier string,
) (*user.User, error) {

	tokenSet, err := a.exchanger.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return nil, err
	}

	u, err := a.resolver.Resolve(ctx, tokenSet.AccessToken, tokenSet.IDToken)
	if err != nil {
		return nil, err
	}

	if err := a.tokens.StoreTokens(sess, tokenSet.AccessToken, tokenSet.IDToken, tokenSet.RefreshToken); err != nil {
		return nil, err
	}

	return u, nil
}
