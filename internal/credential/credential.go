// Package credential implements the credential verifier (C3): local HA1
// based password verification and a pluggable group verifier seam standing
// in for auth.c's PAM integration (C10).
package credential

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/litehttp/authcore/internal/identity"
)

// HA1 computes the RFC 2617 HA1 value for username/realm/password. It is
// the single point where cleartext passwords are hashed; callers never
// write the result back over the caller's password field (auth.c's
// websVerifyPassword hashes wp->password in place, double-hashing it on a
// second call against an already-digested value — this package always
// derives HA1 into a new value instead).
func HA1(username, realm, password string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", username, realm, password)))
	return hex.EncodeToString(sum[:])
}

// VerifyLocal checks a username/password pair against the identity store.
// password is the cleartext password presented through Basic or Form;
// VerifyLocal derives its HA1 itself (Digest supplies the response hash
// through a different path entirely and does not call this function). It reports
// false, without distinguishing "no such user" from "wrong password", for
// unknown users or password mismatches (§7: never reveal which check failed).
func VerifyLocal(store *identity.Store, username, realm, password string) bool {
	u, ok := store.LookupUser(username)
	if !ok {
		return false
	}
	want := u.Password
	got := HA1(username, realm, password)
	// u.Password may already be stored as an HA1 (the flat-text loader does
	// not distinguish cleartext from pre-hashed passwords), so a cleartext
	// comparison is tried first and an HA1 comparison second.
	if constantTimeEqual(want, password) {
		return true
	}
	return constantTimeEqual(want, got)
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GroupAuthenticator verifies a username/password pair against an external
// identity source (auth.c's PAM path) and reports the caller's group
// memberships on success, so the gate can synthesize a temporary user whose
// abilities derive from those groups when no local user record exists.
type GroupAuthenticator interface {
	Authenticate(username, password string) (groups []string, ok bool)
}

// EnsureGroupUser materializes (or refreshes) a temporary identity-store
// user for a principal authenticated by a GroupAuthenticator, with the
// caller's groups recorded as its roles spec — mirroring auth.c's
// websVerifyPamPassword, which synthesizes abilities from the OS group
// list when no local WebsUser exists. It does not compute abilities; the
// caller is expected to follow with an ability.Resolver.Compute.
func EnsureGroupUser(store *identity.Store, username string, groups []string) (*identity.User, error) {
	if u, ok := store.LookupUser(username); ok {
		rolesSpec := joinGroups(groups)
		if err := store.SetUserRoles(username, rolesSpec); err != nil {
			return nil, err
		}
		return u, nil
	}
	u, err := store.AddUser(username, "", joinGroups(groups))
	if err != nil {
		return nil, fmt.Errorf("credential: create temp user for %q: %w", username, err)
	}
	return u, nil
}

func joinGroups(groups []string) string {
	out := ""
	for i, g := range groups {
		if i > 0 {
			out += " "
		}
		out += g
	}
	return out
}
