// Package protocol implements the HTTP-facing credential adapters (C4):
// Basic, Digest, and Form login, dispatched by a tagged AuthType rather
// than auth.c's per-route function pointers (websSetRouteAuth), so a
// route's auth mechanism is a plain comparable value instead of a pair of
// opaque C function pointers.
package protocol

import "net/http"

// AuthType names one of the supported authentication mechanisms for a route.
type AuthType string

const (
	// AuthNone marks a route that requires no authentication at all.
	AuthNone AuthType = ""
	// AuthBasic is RFC 2617 HTTP Basic authentication.
	AuthBasic AuthType = "basic"
	// AuthDigest is RFC 2617 HTTP Digest authentication.
	AuthDigest AuthType = "digest"
	// AuthForm is cookie/session-backed form login.
	AuthForm AuthType = "form"
)

// Bundle carries the transient, per-request credential material extracted
// from an HTTP request by an Adapter. Fields not used by a given mechanism
// are left zero; e.g. Basic and Form never populate the Digest-only fields.
type Bundle struct {
	AuthType AuthType

	Username string
	Password string // cleartext; populated by Basic and Form only

	// Digest-only fields, named after auth.c's Webs struct fields of the
	// same purpose (wp->realm, wp->nonce, wp->nc, wp->cnonce, wp->qop,
	// wp->digestUri, wp->opaque, wp->digest).
	Realm      string
	Nonce      string
	NC         string
	CNonce     string
	QOP        string
	DigestURI  string
	Opaque     string
	Response   string // the client-submitted response digest
	Method     string
}

// Adapter parses request credentials for one AuthType and knows how to ask
// the client to (re-)authenticate when none were supplied or they failed.
type Adapter interface {
	// Parse extracts a Bundle from the request. ok is false when the
	// request carries no credentials for this mechanism at all (as
	// opposed to carrying invalid ones, which is reported via err).
	Parse(r *http.Request) (bundle *Bundle, ok bool, err error)

	// AskLogin writes whatever response is needed to prompt the client
	// to (re-)authenticate (a WWW-Authenticate challenge for Basic/Digest,
	// a redirect to the login form for Form).
	AskLogin(w http.ResponseWriter, r *http.Request)
}
