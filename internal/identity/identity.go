// Package identity implements the user/role directory (C1): an in-memory
// directory of users and roles with load/save to a flat text file.
package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Errors returned by Store operations. Callers should compare with errors.Is.
var (
	ErrNotFound      = errors.New("identity: not found")
	ErrAlreadyExists = errors.New("identity: already exists")
	ErrInvalid       = errors.New("identity: invalid name")
)

// User is a named principal with a password and a role/ability set.
//
// Password is stored either as cleartext or as the precomputed MD5 of
// "name:realm:password"; the form is implicit from how the record was
// loaded or created and is not tracked separately (mirrors auth.c, where
// wp->user->password is whichever form the admin configured).
type User struct {
	Name     string
	Password string
	Roles    string // whitespace/comma-separated, as authored

	mu        sync.RWMutex
	abilities map[string]struct{}
}

// Abilities returns a snapshot of the user's terminal ability set.
func (u *User) Abilities() map[string]struct{} {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[string]struct{}, len(u.abilities))
	for a := range u.abilities {
		out[a] = struct{}{}
	}
	return out
}

// Can reports whether the user's ability set contains ability.
func (u *User) Can(ability string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.abilities[ability]
	return ok
}

// setAbilities atomically replaces the user's ability set. Callers must
// build the new set off to the side (see internal/ability) so readers never
// observe a half-built set.
func (u *User) setAbilities(abilities map[string]struct{}) {
	u.mu.Lock()
	u.abilities = abilities
	u.mu.Unlock()
}

// Role is a named bundle of abilities and/or sub-role names.
type Role struct {
	Name       string
	Abilities  []string // insertion order preserved; members may be terminal abilities or role names
}

// Store is the in-memory user/role directory (C1). The zero value is not
// usable; construct with New. Store is safe for concurrent use: reads take
// the read lock and mutations take the write lock; ability-set replacement
// happens atomically under each User's own lock (§5 of the expanded spec).
type Store struct {
	mu    sync.RWMutex
	users map[string]*User
	roles map[string]*Role
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users: make(map[string]*User),
		roles: make(map[string]*Role),
	}
}

// AddUser creates and registers a new user. rolesSpec is stored verbatim;
// callers wanting abilities materialized immediately should follow with
// ability.Resolver.Compute (package internal/ability); the store does not
// call it itself, to avoid an import cycle.
func (s *Store) AddUser(name, password, rolesSpec string) (*User, error) {
	if name == "" {
		return nil, fmt.Errorf("add user: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; ok {
		return nil, fmt.Errorf("add user %q: %w", name, ErrAlreadyExists)
	}
	u := &User{Name: name, Password: password, Roles: rolesSpec, abilities: map[string]struct{}{}}
	s.users[name] = u
	return u, nil
}

// RemoveUser deletes a user by name.
func (s *Store) RemoveUser(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; !ok {
		return fmt.Errorf("remove user %q: %w", name, ErrNotFound)
	}
	delete(s.users, name)
	return nil
}

// LookupUser returns the user with the given name, or ok=false if absent.
func (s *Store) LookupUser(name string) (*User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[name]
	return u, ok
}

// SetUserRoles replaces a user's roles specification. Callers must follow
// with ability.Resolver.Compute for the change to take effect in Abilities().
func (s *Store) SetUserRoles(name, rolesSpec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return fmt.Errorf("set roles for %q: %w", name, ErrNotFound)
	}
	u.Roles = rolesSpec
	return nil
}

// AddRole creates and registers a new role.
func (s *Store) AddRole(name string, abilities []string) (*Role, error) {
	if name == "" {
		return nil, fmt.Errorf("add role: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[name]; ok {
		return nil, fmt.Errorf("add role %q: %w", name, ErrAlreadyExists)
	}
	r := &Role{Name: name, Abilities: append([]string(nil), abilities...)}
	s.roles[name] = r
	return r, nil
}

// RemoveRole deletes a role by name. Per I-invariant in the spec, this does
// not recompute abilities for users that reference the role; callers that
// care about correctness must trigger a global recompute (ability.Resolver.ComputeAll).
func (s *Store) RemoveRole(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[name]; !ok {
		return fmt.Errorf("remove role %q: %w", name, ErrNotFound)
	}
	delete(s.roles, name)
	return nil
}

// LookupRole returns the role with the given name, or ok=false if absent.
func (s *Store) LookupRole(name string) (*Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[name]
	return r, ok
}

// Users returns all users sorted by name, for enumeration (save, CLI listing).
func (s *Store) Users() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Roles returns all roles sorted by name.
func (s *Store) Roles() []*Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetAbilities publishes a freshly computed ability set for u. It is the
// seam internal/ability uses after building a closure off to the side, so
// concurrent readers of u.Abilities() never observe a half-built set.
func SetAbilities(u *User, abilities map[string]struct{}) {
	u.setAbilities(abilities)
}

// SplitRoleTokens tokenizes a roles/abilities spec on whitespace and commas,
// dropping empty tokens produced by trailing commas (auth.c's stok(roles, " \t,", ...)).
func SplitRoleTokens(spec string) []string {
	return strings.FieldsFunc(spec, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}
