package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAuthcoreEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"AUTHCORE_REALM", "AUTHCORE_AUTO_LOGIN", "AUTHCORE_SESSION_USERNAME_KEY",
		"AUTHCORE_NONCE_LIFETIME", "AUTHCORE_ABILITY_MAX_DEPTH", "AUTHCORE_LISTEN_ADDR",
		"AUTHCORE_USERS_FILE", "AUTHCORE_LOGIN_URL",
		"AUTHCORE_COOKIE_HASH_KEY", "AUTHCORE_COOKIE_BLOCK_KEY",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearAuthcoreEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "example.com", cfg.Realm)
	assert.False(t, cfg.AutoLogin)
	assert.Equal(t, 300*time.Second, cfg.NonceLifetime)
	assert.Equal(t, 20, cfg.AbilityMaxDepth)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	clearAuthcoreEnv(t)
	t.Setenv("AUTHCORE_REALM", "corp.internal")
	t.Setenv("AUTHCORE_AUTO_LOGIN", "true")
	t.Setenv("AUTHCORE_ABILITY_MAX_DEPTH", "5")
	t.Setenv("AUTHCORE_NONCE_LIFETIME", "10s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "corp.internal", cfg.Realm)
	assert.True(t, cfg.AutoLogin)
	assert.Equal(t, 5, cfg.AbilityMaxDepth)
	assert.Equal(t, 10*time.Second, cfg.NonceLifetime)
}

func TestLoad_InvalidMaxDepthRejected(t *testing.T) {
	clearAuthcoreEnv(t)
	t.Setenv("AUTHCORE_ABILITY_MAX_DEPTH", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedIntFallsBackToDefault(t *testing.T) {
	clearAuthcoreEnv(t)
	t.Setenv("AUTHCORE_ABILITY_MAX_DEPTH", "not-a-number")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.AbilityMaxDepth)
}

func TestLoad_CookieKeyEphemeralWhenUnset(t *testing.T) {
	clearAuthcoreEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.CookieHashKey, 32)
	assert.Len(t, cfg.CookieBlockKey, 32)
}

func TestLoad_CookieKeyFromHexEnv(t *testing.T) {
	clearAuthcoreEnv(t)
	t.Setenv("AUTHCORE_COOKIE_HASH_KEY", strings.Repeat("ab", 32))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("\xab", 32), string(cfg.CookieHashKey))
}

func TestLoad_CookieKeyInvalidHexRejected(t *testing.T) {
	clearAuthcoreEnv(t)
	t.Setenv("AUTHCORE_COOKIE_HASH_KEY", "not-hex")
	_, err := Load()
	assert.Error(t, err)
}
