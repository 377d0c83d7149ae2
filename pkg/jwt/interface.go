package jwt

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrMissingSub   = errors.New("jwt: missing sub claim")
)

// Manager signs and verifies HS256 tokens.
type Manager interface {
	GenerateToken(userID, email, role string) (string, error)
	Verify(token string) (Payload, error)
}

// New creates a new JWT manager.
func New(cfg Config) (Manager, error) {
	if len(cfg.SecretKey) < MinSecretKeyLen {
		return nil, fmt.Errorf("jwt: secret key must be at least %d characters long, got %d", MinSecretKeyLen, len(cfg.SecretKey))
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &managerImpl{
		secretKey: []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
		ttl:       ttl,
	}, nil
}

type payloadKey struct{}

// SetPayloadToContext stores the authenticated payload.
func SetPayloadToContext(ctx context.Context, p Payload) context.Context {
	return context.WithValue(ctx, payloadKey{}, p)
}

// GetPayloadFromContext returns the payload stored by SetPayloadToContext.
func GetPayloadFromContext(ctx context.Context) (Payload, bool) {
	p, ok := ctx.Value(payloadKey{}).(Payload)
	return p, ok
}

// GetUserIDFromContext returns the authenticated user ID or "".
func GetUserIDFromContext(ctx context.Context) string {
	p, _ := GetPayloadFromContext(ctx)
	return p.UserID
}
