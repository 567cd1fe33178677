package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingSecret = errors.New("token secret is not configured")

// Claims are issued by the upstream editor account system. The password
// field of a credential carries the signed token and the username must match
// the token's username claim.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenChecker accepts credentials whose password is an HS256 token signed
// with the shared secret.
type TokenChecker struct {
	secret []byte
}

func NewTokenChecker(secret string) (*TokenChecker, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &TokenChecker{secret: []byte(secret)}, nil
}

func (c *TokenChecker) Check(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	claims, err := ValidateToken(c.secret, password)
	if err != nil {
		return ErrInvalidCredentials
	}
	if claims.Username != username {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken signs a token for username valid for ttl.
func GenerateToken(secret []byte, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func ValidateToken(secret []byte, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
