package utils

import (
	"testing"

	"project/backend/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTTokenCarriesEmail(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}

	signed, err := GenerateJWTToken("student@example.com", cfg)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "student@example.com", claims["email"])
}

func TestTrimBearer(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", trimBearer("Bearer abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", trimBearer("abc.def.ghi"))
}
