// Package cipher wraps the symmetric authenticated encryption used to
// protect refresh tokens at rest in the session store.
package cipher

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrDecryption is returned for ciphertexts that were tampered with,
// produced under another key, or never produced by Encrypt at all.
var ErrDecryption = errors.New("token decryption failed")

// Cipher encrypts and decrypts short secrets with a Fernet key. The
// key is derived once from configuration and is safe for concurrent
// use; a Cipher is built a single time at startup and shared.
type Cipher struct {
	key *fernet.Key
}

// New derives the cipher from a base64url-encoded 32-byte key. An
// absent or malformed key is a fatal configuration error, reported
// here rather than on first use.
func New(key string) (*Cipher, error) {
	if key == "" {
		return nil, errors.New("token encryption key is required")
	}

	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("invalid token encryption key: %w", err)
	}

	return &Cipher{key: k}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.key)
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return string(tok), nil
}

// Decrypt authenticates and decrypts a ciphertext produced by Encrypt.
// It never returns garbage: any invalid input fails with ErrDecryption.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, []*fernet.Key{c.key})
	if msg == nil {
		return "", ErrDecryption
	}
	return string(msg), nil
}
