package encrypter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New("short")
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestEncryptDecrypt(t *testing.T) {
	e, err := New(testKey)
	require.NoError(t, err)

	ct, err := e.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", ct)

	pt, err := e.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pt)
}

func TestSealOpenJSON(t *testing.T) {
	e, _ := New(testKey)

	ct, err := e.SealJSON(map[string]string{"token": "abc"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, e.OpenJSON(ct, &out))
	assert.Equal(t, "abc", out["token"])

	var empty map[string]string
	require.NoError(t, e.OpenJSON("", &empty))
	assert.Nil(t, empty)
}

func TestDecryptWrongKey(t *testing.T) {
	a, _ := New(testKey)
	b, _ := New("fedcba9876543210fedcba9876543210")

	ct, _ := a.Encrypt("secret")
	_, err := b.Decrypt(ct)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = a.Decrypt("AA==")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}
