package cipher

import (
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()

	var k fernet.Key
	require.NoError(t, k.Generate())
	return k.Encode()
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	_, err = New("not-a-key")
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	for _, plaintext := range []string{"", "rt-1", "refresh token with spaces", "héhé\x00binary"} {
		ciphertext, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotEqual(t, plaintext, ciphertext)

		got, err := c.Decrypt(ciphertext)
		require.NoError(t, err)
		require.Equal(t, plaintext, got)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	c, err := New(testKey(t))
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("rt-1")
	require.NoError(t, err)

	tampered := []byte(ciphertext)
	tampered[len(tampered)/2] ^= 0x01

	_, err = c.Decrypt(string(tampered))
	require.ErrorIs(t, err, ErrDecryption)

	_, err = c.Decrypt("garbage")
	require.ErrorIs(t, err, ErrDecryption)
}

func TestDecryptRejectsOtherKey(t *testing.T) {
	c1, err := New(testKey(t))
	require.NoError(t, err)
	c2, err := New(testKey(t))
	require.NoError(t, err)

	ciphertext, err := c1.Encrypt("rt-1")
	require.NoError(t, err)

	_, err = c2.Decrypt(ciphertext)
	require.ErrorIs(t, err, ErrDecryption)
}
