package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New(Config{SecretKey: "short"})
	assert.Error(t, err)
}

func TestGenerateAndVerify(t *testing.T) {
	m, err := New(Config{SecretKey: testSecret, Issuer: "logstream-srv"})
	require.NoError(t, err)

	token, err := m.GenerateToken("user-1", "a@example.com", "admin")
	require.NoError(t, err)

	p, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Payload{UserID: "user-1", Email: "a@example.com", Role: "admin"}, p)
}

func TestVerifyRejectsWrongSecretAndIssuer(t *testing.T) {
	a, _ := New(Config{SecretKey: testSecret, Issuer: "a"})
	b, _ := New(Config{SecretKey: "another-secret-of-length", Issuer: "a"})
	c, _ := New(Config{SecretKey: testSecret, Issuer: "c"})

	token, err := a.GenerateToken("user-1", "", "")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = c.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	m, _ := New(Config{SecretKey: testSecret, TTL: time.Minute})
	impl := m.(*managerImpl)
	impl.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.GenerateToken("user-1", "", "")
	require.NoError(t, err)

	impl.now = nil
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmpty(t *testing.T) {
	m, _ := New(Config{SecretKey: testSecret})
	_, err := m.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContextHelpers(t *testing.T) {
	ctx := SetPayloadToContext(context.Background(), Payload{UserID: "u"})
	assert.Equal(t, "u", GetUserIDFromContext(ctx))
	assert.Equal(t, "", GetUserIDFromContext(context.Background()))
}
