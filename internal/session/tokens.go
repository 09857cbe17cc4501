package session

import (
	"fmt"

	"github.com/RussPalms/docs-dev-0a/internal/auth/cipher"
)

// Session keys under which OIDC tokens are stored.
const (
	KeyAccessToken  = "oidc_access_token"
	KeyIDToken      = "oidc_id_token"
	KeyRefreshToken = "oidc_refresh_token"
)

// TokenStore persists OIDC tokens into a session's payload, gated by
// configuration flags. Access and ID tokens are stored as-is; the
// refresh token is always encrypted before it touches the session.
// The store mutates the caller's session in place and has no storage
// of its own.
type TokenStore struct {
	cipher *cipher.Cipher

	storeAccessToken  bool
	storeIDToken      bool
	storeRefreshToken bool
}

// NewTokenStore wires the token store. cipher may be nil only when
// refresh-token storage is disabled.
func NewTokenStore(c *cipher.Cipher, storeAccess, storeID, storeRefresh bool) (*TokenStore, error) {
	if storeRefresh && c == nil {
		return nil, fmt.Errorf("refresh token storage enabled without a cipher")
	}

	return &TokenStore{
		cipher:            c,
		storeAccessToken:  storeAccess,
		storeIDToken:      storeID,
		storeRefreshToken: storeRefresh,
	}, nil
}

// StoreTokens writes the tokens enabled by configuration into the
// session. Disabled tokens leave their session key untouched.
func (t *TokenStore) StoreTokens(sess *Session, accessToken, idToken, refreshToken string) error {
	if t.storeAccessToken {
		sess.Set(KeyAccessToken, accessToken)
	}

	if t.storeIDToken {
		sess.Set(KeyIDToken, idToken)
	}

	return t.StoreRefreshToken(sess, refreshToken)
}

// StoreRefreshToken encrypts and stores the refresh token. It is a
// no-op when storage is disabled or the provider returned no refresh
// token.
func (t *TokenStore) StoreRefreshToken(sess *Session, refreshToken string) error {
	if !t.storeRefreshToken || refreshToken == "" {
		return nil
	}

	encrypted, err := t.cipher.Encrypt(refreshToken)
	if err != nil {
		return err
	}

	sess.Set(KeyRefreshToken, encrypted)
	return nil
}

// RefreshToken returns the decrypted refresh token, or "" when none is
// stored. A ciphertext that fails authentication is a hard failure: a
// tampered session token must not silently vanish.
func (t *TokenStore) RefreshToken(sess *Session) (string, error) {
	encrypted := sess.Get(KeyRefreshToken)
	if encrypted == "" {
		return "", nil
	}

	if t.cipher == nil {
		// A stored value without a configured cipher can only mean a
		// forged session payload.
		return "", cipher.ErrDecryption
	}

	return t.cipher.Decrypt(encrypted)
}
