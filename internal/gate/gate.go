// Package gate implements the authorization gate (C6): the per-request
// decision procedure from auth.c's websAuthenticate, reimplemented against
// an explicit AuthContext instead of process-wide globals (users, roles,
// and the Digest secret/counter in the original source), and a pure
// ability-subset authorization check.
package gate

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/litehttp/authcore/internal/ability"
	"github.com/litehttp/authcore/internal/credential"
	"github.com/litehttp/authcore/internal/identity"
	"github.com/litehttp/authcore/internal/protocol"
	"github.com/litehttp/authcore/internal/session"
)

// Verifier checks a parsed credential bundle and, on success, returns the
// identity that was verified. It is the pluggable seam auth.c implements
// as route->verify: the built-in local verifier or a PAM-backed one.
type Verifier func(store *identity.Store, b *protocol.Bundle) (username string, ok bool)

// VerifyLocal is the built-in Verifier backed by the local identity store.
func VerifyLocal(realm string) Verifier {
	return func(store *identity.Store, b *protocol.Bundle) (string, bool) {
		switch b.AuthType {
		case protocol.AuthDigest:
			if !credential.VerifyDigest(store, b) {
				return "", false
			}
			return b.Username, true
		default:
			if !credential.VerifyLocal(store, b.Username, realm, b.Password) {
				return "", false
			}
			return b.Username, true
		}
	}
}

// VerifyGroup adapts a credential.GroupAuthenticator into a Verifier,
// synthesizing a temporary identity-store user from the caller's group
// membership on first success (auth.c's websVerifyPamPassword path).
func VerifyGroup(auth credential.GroupAuthenticator, resolver *ability.Resolver) Verifier {
	return func(store *identity.Store, b *protocol.Bundle) (string, bool) {
		groups, ok := auth.Authenticate(b.Username, b.Password)
		if !ok {
			return "", false
		}
		u, err := credential.EnsureGroupUser(store, b.Username, groups)
		if err != nil {
			log.Printf("gate: ensure group user %q: %v", b.Username, err)
			return "", false
		}
		resolver.Compute(u)
		return u.Name, true
	}
}

// Route binds one protected endpoint to an auth mechanism, its required
// abilities, and the verifier that decides credential validity.
type Route struct {
	AuthType          protocol.AuthType
	RequiredAbilities []string
	Adapter           protocol.Adapter
	Verify            Verifier
}

// Config carries the deployment-tunable knobs named in the expanded spec's
// configuration section (§6): realm and autoLogin. The session cookie codec
// is a separate Gate field.
type Config struct {
	Realm     string
	AutoLogin bool
}

// Gate is the explicit AuthContext: the user/role store, resolver, session
// binder and cookie codec that auth.c kept as process-wide globals live
// here instead (the Digest secret and nonce counter live on each
// protocol.Digest adapter), so multiple Gates (e.g. one per test, or per
// virtual host) can coexist.
type Gate struct {
	Identity *identity.Store
	Resolver *ability.Resolver
	Binder   *session.Binder
	Cookies  *session.CookieCodec
	Config   Config
}

// New constructs a Gate from its collaborators.
func New(identityStore *identity.Store, resolver *ability.Resolver, binder *session.Binder, cookies *session.CookieCodec, cfg Config) *Gate {
	return &Gate{Identity: identityStore, Resolver: resolver, Binder: binder, Cookies: cookies, Config: cfg}
}

// Authenticate runs the decision procedure from §4.6 of the expanded spec
// for a single request against route. On success it returns the
// authenticated username; the caller is expected to check Authorize next.
// On failure it has already written the appropriate response (400 for a
// protocol mismatch, otherwise the adapter's AskLogin response: a 401 with
// a challenge for Basic/Digest, a redirect to the login form for Form) and
// the caller must not write anything further.
func (g *Gate) Authenticate(w http.ResponseWriter, r *http.Request, route *Route) (username string, ok bool) {
	if g.Config.AutoLogin || route.AuthType == protocol.AuthNone {
		return "", true
	}

	if token, found := g.Cookies.ReadCookie(r); found {
		if name, err := g.Binder.LoadIdentity(token); err == nil {
			return name, true
		}
	}

	if reqType := requestAuthType(r); reqType != protocol.AuthNone && reqType != route.AuthType {
		http.Error(w, "Access denied. Wrong authentication protocol type.", http.StatusBadRequest)
		return "", false
	}

	bundle, hadCredentials, err := route.Adapter.Parse(r)
	if err != nil {
		// A malformed or semantically invalid credential bundle (bad
		// base64, missing Digest fields, a stale or mismatched nonce) is
		// not a protocol-type mismatch — it is treated the same as any
		// other verification failure: a fresh challenge and a 401, never
		// a 400 (§7 keeps 400 reserved for "wrong auth protocol type").
		log.Printf("gate: parse auth for route: %v", err)
		route.Adapter.AskLogin(w, r)
		return "", false
	}
	if !hadCredentials || bundle == nil || bundle.Username == "" {
		route.Adapter.AskLogin(w, r)
		return "", false
	}

	name, verified := route.Verify(g.Identity, bundle)
	if !verified {
		// §7: never reveal which check failed; the caller only learns 401.
		log.Printf("gate: authentication failed for user %q", bundle.Username)
		route.Adapter.AskLogin(w, r)
		return "", false
	}

	token, err := g.Binder.RememberIdentity(name)
	if err != nil {
		log.Printf("gate: remember identity for %q: %v", name, err)
	} else if err := g.Cookies.SetCookie(w, token); err != nil {
		log.Printf("gate: set session cookie for %q: %v", name, err)
	}
	return name, true
}

// Authorize reports whether an authenticated user satisfies a route's
// required abilities. The empty requirement set admits any authenticated
// user, matching §4.6's "follows authentication" rule.
func (g *Gate) Authorize(username string, route *Route) bool {
	u, ok := g.Identity.LookupUser(username)
	if !ok {
		return false
	}
	return ability.Ability(u, route.RequiredAbilities)
}

// requestAuthType inspects the Authorization header to determine which
// protocol, if any, the client attempted to use, independent of which
// adapter the target route actually expects. Used for the protocol
// mismatch check (testable property 8: a Digest route receiving a Basic
// header must respond 400, not 401).
func requestAuthType(r *http.Request) protocol.AuthType {
	header := r.Header.Get("Authorization")
	switch {
	case strings.HasPrefix(header, "Basic "):
		return protocol.AuthBasic
	case strings.HasPrefix(header, "Digest "):
		return protocol.AuthDigest
	default:
		return protocol.AuthNone
	}
}

// Logout forgets the caller's session and clears its cookie, mirroring
// auth.c's logoutServiceProc (remove the session var; respond 401 for
// Basic/Digest-flavored routes, 200 otherwise).
func (g *Gate) Logout(w http.ResponseWriter, r *http.Request, route *Route) {
	if token, found := g.Cookies.ReadCookie(r); found {
		g.Binder.Forget(token)
	}
	g.Cookies.ClearCookie(w)
	if route.AuthType == protocol.AuthBasic || route.AuthType == protocol.AuthDigest {
		http.Error(w, "Logged out.", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Login handles a Form action's POST, verifying credentials directly
// (bypassing Authenticate's cached-session fast path since a login
// request is, by definition, establishing a new session) and redirecting
// per §4.4's Form adapter semantics.
func (g *Gate) Login(w http.ResponseWriter, r *http.Request, route *Route, referrer string) {
	bundle, hadCredentials, err := route.Adapter.Parse(r)
	if err != nil || !hadCredentials || bundle == nil {
		http.Error(w, fmt.Sprintf("Bad Request: %v", err), http.StatusBadRequest)
		return
	}
	name, verified := route.Verify(g.Identity, bundle)
	if !verified {
		route.Adapter.AskLogin(w, r)
		return
	}
	token, err := g.Binder.RememberIdentity(name)
	if err != nil {
		log.Printf("gate: remember identity for %q: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := g.Cookies.SetCookie(w, token); err != nil {
		log.Printf("gate: set session cookie for %q: %v", name, err)
	}
	if referrer != "" {
		http.Redirect(w, r, referrer, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
