// Package auth extracts identity claims from upstream-issued bearer tokens.
//
// The upstream dictionary API issues and verifies tokens; this service never
// holds the signing secret. Claims are read without signature verification so
// expiry and role can be checked before a request burst — the upstream
// re-validates every proxied call.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// ParseToken decodes the claims of a bearer token and checks expiry.
func ParseToken(token string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.ID == "" || claims.Username == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}
	if !time.Now().Before(claims.ExpiresAt.Time) {
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}
