package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-our-secret"))
	require.NoError(t, err)
	return token
}

func TestFromTokenPrefersSub(t *testing.T) {
	user, err := FromToken(sign(t, jwt.MapClaims{"sub": "u-1", "id": "u-2", "email": "caja@ring.test", "role": "SELLER"}))
	require.NoError(t, err)
	require.Equal(t, User{ID: "u-1", Email: "caja@ring.test", Role: "SELLER"}, user)
}

func TestFromTokenFallsBackToUserID(t *testing.T) {
	user, err := FromToken("Bearer " + sign(t, jwt.MapClaims{"userId": float64(17)}))
	require.NoError(t, err)
	require.Equal(t, "17", user.ID)
}

func TestFromTokenRejectsEmptyAndGarbage(t *testing.T) {
	_, err := FromToken("")
	require.ErrorIs(t, err, ErrNoIdentity)
	_, err = FromToken("not-a-jwt")
	require.ErrorIs(t, err, ErrNoIdentity)
	_, err = FromToken(sign(t, jwt.MapClaims{"email": "x@y"}))
	require.ErrorIs(t, err, ErrNoIdentity)
}

func TestFingerprintScopesByToken(t *testing.T) {
	a := Fingerprint("tok-a")
	require.Len(t, a, 32)
	require.Equal(t, a, Fingerprint("Bearer tok-a"))
	require.NotEqual(t, a, Fingerprint("tok-b"))
	require.Empty(t, Fingerprint(" "))
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	require.True(t, Expired(sign(t, jwt.MapClaims{"sub": "u", "exp": float64(now.Add(-time.Minute).Unix())}), now))
	require.False(t, Expired(sign(t, jwt.MapClaims{"sub": "u", "exp": float64(now.Add(time.Hour).Unix())}), now))
	require.False(t, Expired(sign(t, jwt.MapClaims{"sub": "u"}), now))
	require.False(t, Expired("opaque", now))
}
