// Package ability implements the ability resolver (C2): transitive closure
// over the role graph, with cycle defense that does not depend solely on a
// depth cap (auth.c's computeAbilities recurses with only a depth>20 guard,
// which tolerates cycles up to that depth before giving up; here a visited
// set makes every role expanded at most once per user, with the depth cap
// kept as a secondary backstop against pathological role graphs).
package ability

import (
	"log"

	"github.com/litehttp/authcore/internal/identity"
)

// DefaultMaxDepth bounds role-chain depth even though the visited set
// already prevents infinite recursion; it catches unreasonably long chains
// early and keeps the error auth.c would have logged for deeply nested
// (but acyclic) role graphs.
const DefaultMaxDepth = 20

// Resolver computes ability closures for users registered in a Store.
type Resolver struct {
	store    *identity.Store
	maxDepth int
}

// New returns a Resolver bound to store. maxDepth<=0 selects DefaultMaxDepth.
func New(store *identity.Store, maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{store: store, maxDepth: maxDepth}
}

// Compute expands u's roles into its terminal ability set and publishes the
// result via identity.SetAbilities, so concurrent readers of u.Abilities()
// never observe a half-built set. It always replaces the prior set, even if
// the new set happens to be identical.
func (r *Resolver) Compute(u *identity.User) {
	abilities := map[string]struct{}{}
	visited := map[string]struct{}{}
	for _, role := range identity.SplitRoleTokens(u.Roles) {
		r.expand(abilities, role, 0, visited)
	}
	identity.SetAbilities(u, abilities)
}

// ComputeAll recomputes abilities for every user in the store. Callers
// invoke this after any role mutation (add/remove role, change role
// abilities) since role removal does not itself trigger a recompute.
func (r *Resolver) ComputeAll() {
	for _, u := range r.store.Users() {
		r.Compute(u)
	}
}

// expand walks the role graph rooted at role, adding every terminal ability
// reached to abilities. visited holds role names already expanded during
// this user's closure; a role seen twice is skipped rather than re-expanded, which is what
// makes the closure terminate even over a cyclic role graph (role A lists
// role B which lists role A). depth is tracked only as a secondary guard.
func (r *Resolver) expand(abilities map[string]struct{}, role string, depth int, visited map[string]struct{}) {
	if depth > r.maxDepth {
		log.Printf("ability: role %q exceeds max depth %d; closure truncated", role, r.maxDepth)
		return
	}
	if _, seen := visited[role]; seen {
		return
	}
	visited[role] = struct{}{}

	rp, ok := r.store.LookupRole(role)
	if !ok {
		// Not a known role name: treat it as a terminal ability, matching
		// auth.c's fallback of hashEnter(abilities, role, ...) when the
		// token does not resolve to a WebsRole.
		abilities[role] = struct{}{}
		return
	}
	for _, member := range rp.Abilities {
		r.expand(abilities, member, depth+1, visited)
	}
}

// Ability reports the closure membership check used by C6's pure
// authorization gate: does the user's (already-computed) ability set
// contain every one of required.
func Ability(u *identity.User, required []string) bool {
	for _, want := range required {
		if !u.Can(want) {
			return false
		}
	}
	return true
}
