// Package identity reads the acting user from an upstream bearer token.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIdentity is returned when no user can be resolved from the token.
var ErrNoIdentity = errors.New("identity: no authenticated user")

// User is the subset of claims the POS needs.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// FromToken decodes the token claims without verifying the signature; the
// upstream API verifies every call it receives.
func FromToken(token string) (User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return User{}, ErrNoIdentity
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	user := User{
		ID:    firstString(claims, "sub", "id", "userId"),
		Email: firstString(claims, "email"),
		Role:  firstString(claims, "role"),
	}
	if user.ID == "" {
		return User{}, ErrNoIdentity
	}
	return user, nil
}

// Fingerprint returns a stable, non-reversible key for a token. It scopes data
// cached on behalf of the caller.
func Fingerprint(token string) string {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// Expired reports whether the token carries an exp claim at or before now.
// Opaque tokens and tokens without exp are never expired here.
func Expired(token string, now time.Time) bool {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
