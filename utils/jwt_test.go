package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentledger/config"
)

func TestJWTRoundTrip(t *testing.T) {
	config.InitConfig()

	token, err := GenerateJWT(42, "alice@example.com", "tenant", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "tenant", claims.Role)
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	config.InitConfig()

	token, err := GenerateJWT(42, "alice@example.com", "tenant", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.InitConfig()

	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong-pass", hash))
}
