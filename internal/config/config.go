// Package config loads the deployment-tunable knobs named in §6 of the
// expanded spec, grounded on TerraConstructs-grid's
// internal/config.Load/getEnv/getEnvInt/getEnvBool pattern.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds every runtime-tunable knob the authentication core needs.
type Config struct {
	// Realm is mixed into HA1 assembly and appears in Basic/Digest challenges.
	Realm string

	// AutoLogin bypasses authentication entirely. Intended for development;
	// a production deployment should never set this.
	AutoLogin bool

	// SessionUsernameKey is loaded from the environment but not consulted
	// by the session binder, which stores the username directly against
	// the session token's hash.
	SessionUsernameKey string

	// NonceLifetime bounds how long a minted Digest nonce stays fresh.
	NonceLifetime time.Duration

	// AbilityMaxDepth bounds role-chain recursion depth in the ability
	// resolver as a secondary defense alongside the visited-set.
	AbilityMaxDepth int

	// ListenAddr is the address the demo server binds to.
	ListenAddr string

	// UsersFile is the flat-text identity store path.
	UsersFile string

	// LoginURL is where Form auth redirects unauthenticated requests.
	LoginURL string

	// CookieHashKey authenticates session cookies (securecookie's hash
	// key); 32 or 64 bytes once hex-decoded. Required for cookie
	// integrity across restarts of a multi-instance deployment.
	CookieHashKey []byte

	// CookieBlockKey optionally encrypts session cookies in addition to
	// authenticating them; 16, 24, or 32 bytes once hex-decoded. May be
	// nil, in which case cookie values are signed but not encrypted.
	CookieBlockKey []byte
}

// Load reads configuration from AUTHCORE_* environment variables, falling
// back to development-friendly defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Realm:              getEnv("AUTHCORE_REALM", "example.com"),
		AutoLogin:          getEnvBool("AUTHCORE_AUTO_LOGIN", false),
		SessionUsernameKey: getEnv("AUTHCORE_SESSION_USERNAME_KEY", "username"),
		NonceLifetime:      getEnvDuration("AUTHCORE_NONCE_LIFETIME", 300*time.Second),
		AbilityMaxDepth:    getEnvInt("AUTHCORE_ABILITY_MAX_DEPTH", 20),
		ListenAddr:         getEnv("AUTHCORE_LISTEN_ADDR", "localhost:8080"),
		UsersFile:          getEnv("AUTHCORE_USERS_FILE", "authcore.conf"),
		LoginURL:           getEnv("AUTHCORE_LOGIN_URL", "/login"),
	}

	if cfg.Realm == "" {
		return nil, fmt.Errorf("config: AUTHCORE_REALM must not be empty")
	}
	if cfg.AbilityMaxDepth <= 0 {
		return nil, fmt.Errorf("config: AUTHCORE_ABILITY_MAX_DEPTH must be positive")
	}
	if cfg.AutoLogin {
		fmt.Fprintln(os.Stderr, "authcore: WARNING: AUTHCORE_AUTO_LOGIN is set; all authentication is bypassed")
	}

	hashKey, err := getEnvHexKey("AUTHCORE_COOKIE_HASH_KEY", 32)
	if err != nil {
		return nil, err
	}
	cfg.CookieHashKey = hashKey
	blockKey, err := getEnvHexKey("AUTHCORE_COOKIE_BLOCK_KEY", 32)
	if err != nil {
		return nil, err
	}
	cfg.CookieBlockKey = blockKey

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvHexKey decodes a hex-encoded key from the environment. When unset
// it mints a random key of n bytes so a single-instance deployment still
// works out of the box; sessions minted before a restart become
// unverifiable once the ephemeral key is replaced, so a multi-instance or
// restart-tolerant deployment must set the variable explicitly.
func getEnvHexKey(key string, n int) ([]byte, error) {
	value := os.Getenv(key)
	if value == "" {
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("config: generate ephemeral %s: %w", key, err)
		}
		fmt.Fprintf(os.Stderr, "authcore: WARNING: %s not set; using an ephemeral key for this process only\n", key)
		return buf, nil
	}
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("config: %s: invalid hex: %w", key, err)
	}
	return decoded, nil
}
