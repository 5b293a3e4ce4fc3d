package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"safecircle/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Cfg = &config.Config{JWTSecret: "test-secret"}

	token, err := GenerateToken("u1")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	config.Cfg = &config.Config{JWTSecret: "first"}
	token, err := GenerateToken("u1")
	require.NoError(t, err)

	config.Cfg = &config.Config{JWTSecret: "second"}
	_, err = ParseToken(token)
	assert.Error(t, err)
}
