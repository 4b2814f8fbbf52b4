// Package auth verifies identity tokens minted by the external auth
// service. The engine performs no credential checks itself: it trusts the
// token's subject as the stable user identifier.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"threadly/errors"
)

// IdentityClaims is the payload the auth collaborator puts in a token.
type IdentityClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed identity token. Production tokens come
// from the auth service; this helper exists for the tester CLI and tests.
func GenerateToken(secret []byte, userID string, duration time.Duration) (string, error) {
	claims := &IdentityClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "threadly",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates the signature and expiration of an
// identity token, returning the claims on success.
func ValidateToken(secret []byte, tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
