package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPasswordHash(t *testing.T) {
	t.Run("ValidPassword", func(t *testing.T) {
		hash, err := HashPassword("a")
		require.NoError(t, err)

		ok, err := CheckPasswordHash("a", hash)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		hash, err := HashPassword("right")
		require.NoError(t, err)

		ok, err := CheckPasswordHash("wrong", hash)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		_, err := HashPassword("")
		assert.ErrorIs(t, err, ErrEmptyPassword)

		ok, err := CheckPasswordHash("", "whatever")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("LongPassword", func(t *testing.T) {
		long := strings.Repeat("a", 100)
		hash, err := HashPassword(long)
		require.NoError(t, err)

		ok, err := CheckPasswordHash(long, hash)
		assert.NoError(t, err)
		assert.True(t, ok)

		// Same first 72 bytes, different tail.
		ok, err = CheckPasswordHash(strings.Repeat("a", 72)+"b", hash)
		assert.NoError(t, err)
		assert.False(t, ok)

		ok, err = CheckPasswordHash(strings.Repeat("a", 72), hash)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ExactlyBcryptLimit", func(t *testing.T) {
		pw := strings.Repeat("x", 72)
		hash, err := HashPassword(pw)
		require.NoError(t, err)

		ok, err := CheckPasswordHash(pw, hash)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CorruptedHash", func(t *testing.T) {
		ok, err := CheckPasswordHash("pw", "not-a-bcrypt-hash")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func verify(t *testing.T, codec *TokenCodec, token string) (*SessionClaims, error) {
	t.Helper()
	parsed, err := jwtauth.VerifyToken(codec.Auth(), token)
	if err != nil {
		return nil, err
	}
	claims, err := parsed.AsMap(context.Background())
	require.NoError(t, err)
	return ClaimsFromMap(claims, parsed.Expiration())
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec([]byte("0123456789abcdef"), time.Hour)

	token, exp, err := codec.Generate("sid-1", "acc-1", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := verify(t, codec, token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestTokenCodec_RejectsForeignSignature(t *testing.T) {
	a := NewTokenCodec([]byte("0123456789abcdef"), time.Hour)
	b := NewTokenCodec([]byte("fedcba9876543210"), time.Hour)

	token, _, err := a.Generate("sid", "acc", "alice")
	require.NoError(t, err)

	_, err = verify(t, b, token)
	assert.Error(t, err)
}

func TestTokenCodec_RejectsExpired(t *testing.T) {
	codec := NewTokenCodec([]byte("0123456789abcdef"), time.Minute)
	codec.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := codec.Generate("sid", "acc", "alice")
	require.NoError(t, err)

	_, err = verify(t, codec, token)
	assert.Error(t, err)
}

func TestClaimsFromMap_MissingClaims(t *testing.T) {
	_, err := ClaimsFromMap(jwt.MapClaims{"jti": "s", "user_id": "u"}, time.Time{})
	assert.ErrorContains(t, err, "username")

	_, err = ClaimsFromMap(jwt.MapClaims{"user_id": "u", "username": "x"}, time.Time{})
	assert.ErrorContains(t, err, "jti")
}
