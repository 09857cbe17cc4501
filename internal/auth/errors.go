package auth

import (
	"errors"
	"fmt"
)

// Rejection reasons surfaced by the authentication flow. Callers map
// all of these to a generic failure for the end user; the specific
// reason is for logs and tests.
var (
	ErrInvalidUserInfoFormat = errors.New("invalid userinfo response format or token verification failed")
	ErrClaimsVerification    = errors.New("claims verification failed")
	ErrMissingSubject        = errors.New("user info contained no subject")
	ErrAccountDisabled       = errors.New("user account is disabled")
	ErrUserCreationDisabled  = errors.New("user creation is disabled")
)

// HTTPError reports a non-2xx response from the identity provider.
// Status and a body snippet are kept for diagnostics only.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("identity provider returned status %d", e.Status)
}
