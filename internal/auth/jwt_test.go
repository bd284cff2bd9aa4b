package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	signed, err := GenerateToken("scheduler", RoleService, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(signed, secret)
	require.NoError(t, err)
	assert.Equal(t, RoleService, claims.Role)
	assert.Equal(t, "scheduler", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := GenerateToken("u1", RoleAdmin, secret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("u1", RoleAdmin, secret, -time.Minute)
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: RoleAdmin})
	noExpSigned, err := noExp.SignedString([]byte(secret))
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	noneSigned, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, secret},
		{"no expiry", noExpSigned, secret},
		{"alg none", noneSigned, secret},
		{"garbage", "not.a.token", secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			assert.Error(t, err)
		})
	}
}

func TestGenerateTokenRequiresRole(t *testing.T) {
	_, err := GenerateToken("u1", "", secret, time.Hour)
	assert.Error(t, err)
}
