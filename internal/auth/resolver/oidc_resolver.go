package resolver

import (
	"context"
	"strings"

	"github.com/RussPalms/docs-dev-0a/internal/auth"
	"github.com/RussPalms/docs-dev-0a/internal/logger"
	"github.com/RussPalms/docs-dev-0a/internal/user"
)

// Options configures how claims map to user fields.
type Options struct {
	// FullNameClaims are joined, in order, into the user's full name.
	// Absent or empty claims are skipped.
	FullNameClaims []string

	// ShortNameClaim is the single claim holding the short name.
	ShortNameClaim string

	// CreateUser enables provisioning on first login.
	CreateUser bool
}

// OIDCResolver maps verified OIDC claims to a local user: find by
// subject or email, create on first login, update on change, reject
// disabled accounts and ambiguous duplicates.
type OIDCResolver struct {
	fetcher  UserInfoFetcher
	verifier auth.Verifier
	users    user.Store
	opts     Options
}

func New(fetcher UserInfoFetcher, verifier auth.Verifier, users user.Store, opts Options) *OIDCResolver {
	return &OIDCResolver{
		fetcher:  fetcher,
		verifier: verifier,
		users:    users,
		opts:     opts,
	}
}

// Resolve fetches and verifies the claims for accessToken, then
// returns the matching user, creating or updating it as needed. Any
// failure aborts the authentication attempt; nothing is retried.
func (r *OIDCResolver) Resolve(ctx context.Context, accessToken, _ string) (*user.User, error) {
	claims, err := r.fetcher.Fetch(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if !r.verifier.Verify(claims) {
		return nil, auth.ErrClaimsVerification
	}

	// "sub" is mandatory per the OIDC specification; a provider
	// response without it is never trusted.
	sub := claims.String("sub")
	if sub == "" {
		return nil, auth.ErrMissingSubject
	}

	identity := auth.Identity{
		Sub:       sub,
		Email:     claims.String("email"),
		FullName:  r.fullName(claims),
		ShortName: claims.String(r.opts.ShortNameClaim),
	}

	existing, err := r.users.GetBySubOrEmail(ctx, identity.Sub, identity.Email)
	if err != nil {
		// includes user.ErrDuplicateIdentity, propagated with its
		// original message for the operator
		return nil, err
	}

	if existing != nil {
		if !existing.IsActive {
			return nil, auth.ErrAccountDisabled
		}
		return r.updateIfNeeded(ctx, existing, identity)
	}

	if !r.opts.CreateUser {
		logger.Warn("unknown subject and user creation is disabled", map[string]any{
			"sub": identity.Sub,
		})
		return nil, auth.ErrUserCreationDisabled
	}

	created, err := r.users.Create(ctx, user.User{
		Sub:       identity.Sub,
		Email:     identity.Email,
		FullName:  identity.FullName,
		ShortName: identity.ShortName,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user created on first login", map[string]any{
		"user_id": created.ID.String(),
	})

	return created, nil
}

// fullName joins the configured name claims with a single space,
// skipping absent or empty values. An empty join means no name was
// asserted.
func (r *OIDCResolver) fullName(claims auth.Claims) string {
	var parts []string
	for _, name := range r.opts.FullNameClaims {
		if v := claims.String(name); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// updateIfNeeded persists the claim-derived fields that are non-empty
// and differ from the stored value. Empty claims never erase data, and
// an unchanged user performs zero writes.
func (r *OIDCResolver) updateIfNeeded(ctx context.Context, u *user.User, identity auth.Identity) (*user.User, error) {
	changed := user.Fields{}

	apply := func(column, value, current string, set func(string)) {
		if value != "" && value != current {
			changed[column] = value
			set(value)
		}
	}

	// an email-matched account without a subject was provisioned
	// externally; stamp the subject so it stays claimed
	apply("sub", identity.Sub, u.Sub, func(v string) { u.Sub = v })
	apply("email", identity.Email, u.Email, func(v string) { u.Email = v })
	apply("full_name", identity.FullName, u.FullName, func(v string) { u.FullName = v })
	apply("short_name", identity.ShortName, u.ShortName, func(v string) { u.ShortName = v })

	if len(changed) == 0 {
		return u, nil
	}

	if err := r.users.Update(ctx, u.ID, changed); err != nil {
		return nil, err
	}

	return u, nil
}
