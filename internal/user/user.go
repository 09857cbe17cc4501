// Package user owns the local user records that external OIDC
// identities resolve to.
package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// UnusablePassword marks accounts provisioned through OIDC. Such
// accounts can never authenticate with a password; the marker is not a
// valid hash in any scheme.
const UnusablePassword = "!"

// ErrDuplicateIdentity is returned when an identity matches more than
// one distinct account. This is never resolved automatically; an
// operator has to untangle the accounts.
var ErrDuplicateIdentity = errors.New("identity matches several distinct user accounts")

// User is the local account an external identity maps to. Sub is the
// provider's stable subject identifier and the primary external key;
// email is the fallback key. At most one user per sub, and at most one
// active user per email.
type User struct {
	ID        uuid.UUID
	Sub       string
	Email     string
	FullName  string
	ShortName string
	IsActive  bool
}

// Fields is a partial update: column name to new value. Only claim
// mapped columns are accepted by stores.
type Fields map[string]string

// Store is the persistence contract the identity resolver works
// against. GetBySubOrEmail returns (nil, nil) when no account matches.
type Store interface {
	GetBySubOrEmail(ctx context.Context, sub, email string) (*User, error)
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, id uuid.UUID, fields Fields) error
}
