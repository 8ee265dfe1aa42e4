package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is what a session token carries.
type SessionClaims struct {
	SessionID string
	AccountID string
	Username  string
	ExpiresAt time.Time
}

type TokenCodec struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		auth: jwtauth.New("HS256", secret, nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Auth exposes the underlying verifier for jwtauth middleware.
func (c *TokenCodec) Auth() *jwtauth.JWTAuth { return c.auth }

func (c *TokenCodec) TTL() time.Duration { return c.ttl }

func (c *TokenCodec) Generate(sessionID, accountID, username string) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl)
	claims := jwt.MapClaims{
		"jti":      sessionID,
		"user_id":  accountID,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	}
	_, tokenString, err := c.auth.Encode(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode session token: %w", err)
	}
	return tokenString, time.Unix(exp.Unix(), 0), nil
}

func ClaimsFromMap(claims jwt.MapClaims, exp time.Time) (*SessionClaims, error) {
	sid, err := stringClaim(claims, "jti")
	if err != nil {
		return nil, err
	}
	uid, err := stringClaim(claims, "user_id")
	if err != nil {
		return nil, err
	}
	name, err := stringClaim(claims, "username")
	if err != nil {
		return nil, err
	}
	return &SessionClaims{SessionID: sid, AccountID: uid, Username: name, ExpiresAt: exp}, nil
}

func stringClaim(claims jwt.MapClaims, key string) (string, error) {
	v, ok := claims[key].(string)
	if !ok || v == "" {
		return "", errors.New(key + " claim is missing or not a string")
	}
	return v, nil
}
