package encrypter

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

func (e *implEncrypter) Encrypt(plaintext string) (string, error) {
	return e.seal([]byte(plaintext))
}

func (e *implEncrypter) Decrypt(ciphertext string) (string, error) {
	plaintext, err := e.open(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (e *implEncrypter) SealJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return e.seal(b)
}

// OpenJSON treats an empty ciphertext as an empty document.
func (e *implEncrypter) OpenJSON(ciphertext string, v any) error {
	if ciphertext == "" {
		return nil
	}
	b, err := e.open(ciphertext)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

func (e *implEncrypter) seal(data []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	ciphertext := e.gcm.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (e *implEncrypter) open(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrCiphertextTooShort
	}

	nonce, body := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
