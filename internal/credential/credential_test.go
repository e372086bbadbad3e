package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litehttp/authcore/internal/identity"
)

func TestHA1_Deterministic(t *testing.T) {
	a := HA1("alice", "example.com", "secret")
	b := HA1("alice", "example.com", "secret")
	assert.Equal(t, a, b)
	assert.Len(t, a, 32) // hex-encoded MD5
}

func TestHA1_VariesByInput(t *testing.T) {
	base := HA1("alice", "example.com", "secret")
	assert.NotEqual(t, base, HA1("bob", "example.com", "secret"))
	assert.NotEqual(t, base, HA1("alice", "other.com", "secret"))
	assert.NotEqual(t, base, HA1("alice", "example.com", "wrong"))
}

func TestVerifyLocal_CleartextStoredPassword(t *testing.T) {
	s := identity.New()
	_, err := s.AddUser("alice", "secret", "")
	require.NoError(t, err)

	assert.True(t, VerifyLocal(s, "alice", "example.com", "secret"))
	assert.False(t, VerifyLocal(s, "alice", "example.com", "wrong"))
}

func TestVerifyLocal_HA1StoredPassword(t *testing.T) {
	s := identity.New()
	ha1 := HA1("alice", "example.com", "secret")
	_, err := s.AddUser("alice", ha1, "")
	require.NoError(t, err)

	assert.True(t, VerifyLocal(s, "alice", "example.com", "secret"))
	assert.False(t, VerifyLocal(s, "alice", "example.com", "wrong"))
}

func TestVerifyLocal_UnknownUserFails(t *testing.T) {
	s := identity.New()
	assert.False(t, VerifyLocal(s, "ghost", "example.com", "whatever"))
}

func TestVerifyLocal_DoesNotMutatePassword(t *testing.T) {
	s := identity.New()
	_, err := s.AddUser("alice", "secret", "")
	require.NoError(t, err)

	VerifyLocal(s, "alice", "example.com", "secret")
	VerifyLocal(s, "alice", "example.com", "secret") // second call must behave identically

	u, ok := s.LookupUser("alice")
	require.True(t, ok)
	assert.Equal(t, "secret", u.Password) // never overwritten with a hash
}

type fakeGroupAuth struct {
	groups map[string][]string
}

func (f *fakeGroupAuth) Authenticate(username, password string) ([]string, bool) {
	groups, ok := f.groups[username]
	return groups, ok
}

func TestEnsureGroupUser_CreatesTempUser(t *testing.T) {
	s := identity.New()
	u, err := EnsureGroupUser(s, "carol", []string{"engineering", "oncall"})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Name)
	assert.Equal(t, "engineering oncall", u.Roles)
}

func TestEnsureGroupUser_RefreshesExistingUserRoles(t *testing.T) {
	s := identity.New()
	_, err := s.AddUser("carol", "", "stale")
	require.NoError(t, err)

	u, err := EnsureGroupUser(s, "carol", []string{"engineering"})
	require.NoError(t, err)
	assert.Equal(t, "engineering", u.Roles)
}

func TestGroupAuthenticator_Contract(t *testing.T) {
	auth := &fakeGroupAuth{groups: map[string][]string{"dave": {"ops"}}}
	groups, ok := auth.Authenticate("dave", "anything")
	require.True(t, ok)
	assert.Equal(t, []string{"ops"}, groups)

	_, ok = auth.Authenticate("ghost", "anything")
	assert.False(t, ok)
}
