package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTAuthority issues HS256-signed tokens carrying the admin username.
// Tokens validate by signature alone - no server-side lookup - except
// for an in-memory revocation set that makes logout effective before
// expiry. Revocations are lost on restart, but so is nothing else:
// signed tokens issued before a restart remain valid until they expire.
//
// Thread Safety: all methods are safe for concurrent use.
type JWTAuthority struct {
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // JWT ID -> token expiry, for cleanup
}

// NewJWT creates a signed-token authority with the given secret and lifetime.
func NewJWT(secret string, ttl time.Duration) *JWTAuthority {
	return &JWTAuthority{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: make(map[string]time.Time),
	}
}

// Issue creates a signed token for the username.
func (a *JWTAuthority) Issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Authorize validates a token's signature and expiry and resolves the username.
func (a *JWTAuthority) Authorize(tokenString string) (string, error) {
	claims, err := a.parse(tokenString)
	if err != nil {
		return "", ErrUnauthorized
	}

	a.mu.Lock()
	_, isRevoked := a.revoked[claims.ID]
	a.evictExpiredLocked()
	a.mu.Unlock()

	if isRevoked {
		return "", ErrUnauthorized
	}

	return claims.Subject, nil
}

// Revoke marks a token's ID as revoked until the token would have expired
// anyway. Invalid tokens are ignored - revoking garbage is a no-op.
func (a *JWTAuthority) Revoke(tokenString string) {
	claims, err := a.parse(tokenString)
	if err != nil {
		return
	}

	a.mu.Lock()
	a.revoked[claims.ID] = claims.ExpiresAt.Time
	a.mu.Unlock()
}

// parse validates signature, expiry, and required fields.
func (a *JWTAuthority) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("missing required claims")
	}

	return claims, nil
}

// evictExpiredLocked drops revocation records whose tokens have expired.
// Caller must hold a.mu.
func (a *JWTAuthority) evictExpiredLocked() {
	now := time.Now()
	for id, expiry := range a.revoked {
		if now.After(expiry) {
			delete(a.revoked, id)
		}
	}
}
