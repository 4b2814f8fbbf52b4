package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadly/errors"
)

func TestGenerateAndValidate(t *testing.T) {
	req := require.New(t)
	secret := []byte("test-secret")

	token, err := GenerateToken(secret, "alice", time.Minute)
	req.NoError(err)

	claims, err := ValidateToken(secret, token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal("threadly", claims.Issuer)
}

func TestValidateRejections(t *testing.T) {
	req := require.New(t)
	secret := []byte("test-secret")

	tests := []struct {
		name  string
		token func() string
	}{
		{"Garbage token", func() string { return "not.a.token" }},
		{"Wrong secret", func() string {
			token, _ := GenerateToken([]byte("other-secret"), "alice", time.Minute)
			return token
		}},
		{"Expired token", func() string {
			token, _ := GenerateToken(secret, "alice", -time.Minute)
			return token
		}},
		{"Empty subject", func() string {
			token, _ := GenerateToken(secret, "", time.Minute)
			return token
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(secret, tt.token())
			req.ErrorIs(err, errors.ErrInvalidToken)
		})
	}
}
