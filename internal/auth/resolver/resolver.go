package resolver

import (
	"context"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

// Resolver determines which internal user an external identity belongs
// to. It is the ONLY place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		accessToken string,
		idToken string,
	) (*user.User, error)
}

// UserInfoFetcher retrieves verified claims for an access token.
// Implemented by the userinfo package.
type UserInfoFetcher interface {
	Fetch(ctx context.Context, accessToken string) (auth.Claims, error)
}
