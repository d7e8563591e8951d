package auth

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/tobyns/CoveChat/internal/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:     "test-secret",
		Issuer:     "covechat-test",
		Expiration: time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, expiresAt, err := NewToken(cfg, "u1", "alice")
	assert.Equal(t, nil, err)
	assert.NotEqual(t, "", token)
	assert.Equal(t, true, expiresAt.After(time.Now()))

	claims, err := ParseToken(cfg, token)
	assert.Equal(t, nil, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.DisplayName)
	assert.Equal(t, "covechat-test", claims.Issuer)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, _, err := NewToken(cfg, "u1", "alice")
	assert.Equal(t, nil, err)

	other := cfg
	other.Secret = "different"
	_, err = ParseToken(other, token)
	assert.NotEqual(t, nil, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Expiration = -time.Minute

	token, _, err := NewToken(cfg, "u1", "alice")
	assert.Equal(t, nil, err)

	_, err = ParseToken(cfg, token)
	assert.NotEqual(t, nil, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	assert.Equal(t, nil, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.Equal(t, nil, ComparePassword(hash, "hunter2"))
	assert.NotEqual(t, nil, ComparePassword(hash, "wrong"))
}
