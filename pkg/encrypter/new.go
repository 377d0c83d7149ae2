package encrypter

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength is returned when the encryption key has an invalid length
	ErrInvalidKeyLength = errors.New("encryption key must be 16, 24, or 32 bytes long")
	// ErrCiphertextTooShort is returned when the ciphertext is too short to decrypt
	ErrCiphertextTooShort = errors.New("ciphertext is too short")
	// ErrDecryptionFailed is returned when decryption fails
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or key")
)

// Encrypter seals source credentials at rest using AES-GCM.
type Encrypter interface {
	// Encrypt encrypts a plaintext string and returns a base64-encoded ciphertext.
	Encrypt(plaintext string) (string, error)
	// Decrypt decrypts a base64-encoded ciphertext string and returns the plaintext.
	Decrypt(ciphertext string) (string, error)
	// SealJSON marshals v and encrypts it.
	SealJSON(v any) (string, error)
	// OpenJSON decrypts ciphertext and unmarshals it into v.
	OpenJSON(ciphertext string, v any) error
}

type implEncrypter struct {
	gcm cipher.AEAD
}

// New creates a new Encrypter. The key must be 16, 24, or 32 bytes long for
// AES-128, AES-192, or AES-256 respectively.
func New(key string) (Encrypter, error) {
	k := []byte(key)
	if n := len(k); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, n)
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &implEncrypter{gcm: gcm}, nil
}
