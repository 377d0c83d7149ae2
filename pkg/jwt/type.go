package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretKeyLen is the shortest HMAC secret accepted.
const MinSecretKeyLen = 16

// DefaultTTL is used by GenerateToken when Config.TTL is zero.
const DefaultTTL = 24 * time.Hour

// Config holds JWT configuration
type Config struct {
	SecretKey string
	Issuer    string
	TTL       time.Duration
}

// Claims represents the JWT claims structure. Subject carries the user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Payload is what request handlers see after authentication.
type Payload struct {
	UserID string
	Email  string
	Role   string
}

type managerImpl struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}
