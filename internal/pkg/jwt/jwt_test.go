package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	s := New("secret", time.Hour)
	tok, err := s.GenerateToken("ops@staybook", "operator")
	require.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops@staybook", claims.Subject)
	assert.Equal(t, "operator", claims.Role)
}

func TestService_Rejects(t *testing.T) {
	s := New("secret", time.Hour)

	other, err := New("other", time.Hour).GenerateToken("x", "operator")
	require.NoError(t, err)
	_, err = s.ValidateToken(other)
	assert.Error(t, err)

	expired, err := New("secret", -time.Minute).GenerateToken("x", "operator")
	require.NoError(t, err)
	_, err = s.ValidateToken(expired)
	assert.Error(t, err)

	none, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{Role: "operator"}).
		SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ValidateToken(none)
	assert.Error(t, err)
}
