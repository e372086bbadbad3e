// Package session implements the session binder (C5): a cache mapping an
// opaque session id to an authenticated username, so repeated requests
// from the same client skip re-authentication (auth.c's websGetSession +
// WEBS_SESSION_USERNAME session var, grounded here on the bearer-token
// generation idiom from TerraConstructs-grid's internal/auth/session.go).
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Binder.LoadIdentity when no live session
// matches the token.
var ErrNotFound = errors.New("session: not found")

// DefaultLifetime bounds how long a remembered identity remains valid
// before the client must re-authenticate.
const DefaultLifetime = 30 * time.Minute

// Store persists (sessionID -> username) bindings. SessionID values handed
// to callers are opaque; the identifier embedded in a cookie is never a raw
// lookup key but a token whose SHA-256 hash is.
type Store interface {
	Save(tokenHash, username string, expiresAt time.Time) error
	Load(tokenHash string) (username string, ok bool)
	Delete(tokenHash string)
}

// MemoryStore is an in-memory Store, suitable for a single-process server
// or for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	username  string
	expiresAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Save records a binding, overwriting any existing entry for tokenHash.
func (m *MemoryStore) Save(tokenHash, username string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[tokenHash] = memoryEntry{username: username, expiresAt: expiresAt}
	return nil
}

// Load returns the username bound to tokenHash, if any and not expired. An
// expired entry is treated as absent but is not proactively evicted here;
// callers that want eviction should call Delete once they observe it.
func (m *MemoryStore) Load(tokenHash string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[tokenHash]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.username, true
}

// Delete removes a binding.
func (m *MemoryStore) Delete(tokenHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tokenHash)
}

// Binder mints and resolves session tokens against a Store.
type Binder struct {
	store    Store
	lifetime time.Duration
}

// NewBinder returns a Binder backed by store. lifetime<=0 selects DefaultLifetime.
func NewBinder(store Store, lifetime time.Duration) *Binder {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Binder{store: store, lifetime: lifetime}
}

// RememberIdentity mints a new opaque session token bound to username and
// records its hash in the Store. The returned token is what goes into the
// client-visible cookie; only its hash is ever persisted server-side, the
// same separation TerraConstructs-grid's GenerateBearerToken/HashBearerToken
// pair maintains for bearer tokens.
func (b *Binder) RememberIdentity(username string) (token string, err error) {
	id := uuid.New()
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	token = id.String() + "." + hex.EncodeToString(salt)
	if err := b.store.Save(hashToken(token), username, time.Now().Add(b.lifetime)); err != nil {
		return "", fmt.Errorf("session: remember identity: %w", err)
	}
	return token, nil
}

// LoadIdentity resolves a session token to the username it was minted for.
func (b *Binder) LoadIdentity(token string) (string, error) {
	username, ok := b.store.Load(hashToken(token))
	if !ok {
		return "", ErrNotFound
	}
	return username, nil
}

// Forget invalidates a session token (auth.c's websRemoveSessionVar on logout).
func (b *Binder) Forget(token string) {
	b.store.Delete(hashToken(token))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
