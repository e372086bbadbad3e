package gate

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litehttp/authcore/internal/ability"
	"github.com/litehttp/authcore/internal/identity"
	"github.com/litehttp/authcore/internal/protocol"
	"github.com/litehttp/authcore/internal/session"
)

const testRealm = "example.com"

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestGate(t *testing.T) (*Gate, *identity.Store) {
	t.Helper()
	store := identity.New()
	_, err := store.AddRole("admin", []string{"manage", "view"})
	require.NoError(t, err)

	resolver := ability.New(store, 0)
	binder := session.NewBinder(session.NewMemoryStore(), 0)
	hashKey := []byte("01234567890123456789012345678901")
	cookies := session.NewCookieCodec(hashKey, nil)

	g := New(store, resolver, binder, cookies, Config{Realm: testRealm})
	return g, store
}

func addUser(t *testing.T, g *Gate, store *identity.Store, name, ha1, roles string) *identity.User {
	t.Helper()
	u, err := store.AddUser(name, ha1, roles)
	require.NoError(t, err)
	g.Resolver.Compute(u)
	return u
}

// Scenario A: Basic success.
func TestScenarioA_BasicSuccess(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "alice", md5hex("alice:example.com:secret"), "admin")

	route := &Route{AuthType: protocol.AuthBasic, RequiredAbilities: []string{"view"}, Adapter: &protocol.Basic{Realm: testRealm}, Verify: VerifyLocal(testRealm)}

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.SetBasicAuth("alice", "secret")
	w := httptest.NewRecorder()

	username, ok := g.Authenticate(w, r, route)
	require.True(t, ok)
	assert.Equal(t, "alice", username)
	assert.True(t, g.Authorize(username, route))

	u, _ := store.LookupUser("alice")
	assert.True(t, u.Can("manage"))
	assert.True(t, u.Can("view"))
}

// Scenario B: Basic wrong password.
func TestScenarioB_BasicWrongPassword(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "alice", md5hex("alice:example.com:secret"), "admin")

	route := &Route{AuthType: protocol.AuthBasic, RequiredAbilities: []string{"view"}, Adapter: &protocol.Basic{Realm: testRealm}, Verify: VerifyLocal(testRealm)}

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.SetBasicAuth("alice", "wrong")
	w := httptest.NewRecorder()

	_, ok := g.Authenticate(w, r, route)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), `Basic realm="example.com"`)
}

func buildDigestRequest(method, uri, username, ha1, nonce, nc, cnonce, qop string) *http.Request {
	ha2 := md5hex(fmt.Sprintf("%s:%s", method, uri))
	response := md5hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, nonce, nc, cnonce, qop, ha2))
	header := fmt.Sprintf(
		`username="%s", realm="%s", nonce="%s", uri="%s", qop=%s, nc=%s, cnonce="%s", response="%s"`,
		username, testRealm, nonce, uri, qop, nc, cnonce, response)
	r := httptest.NewRequest(method, uri, nil)
	r.Header.Set("Authorization", "Digest "+header)
	return r
}

func mintNonce(t *testing.T, d *protocol.Digest) string {
	t.Helper()
	w := httptest.NewRecorder()
	d.AskLogin(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	challenge := w.Header().Get("WWW-Authenticate")
	start := strings.Index(challenge, `nonce="`) + len(`nonce="`)
	rest := challenge[start:]
	end := strings.IndexByte(rest, '"')
	return rest[:end]
}

// Scenario C: Digest success.
func TestScenarioC_DigestSuccess(t *testing.T) {
	g, store := newTestGate(t)
	ha1 := md5hex("bob:example.com:secret")
	addUser(t, g, store, "bob", ha1, "admin")

	d, err := protocol.NewDigest(testRealm, "/", "serversecret")
	require.NoError(t, err)
	nonce := mintNonce(t, d)

	route := &Route{AuthType: protocol.AuthDigest, RequiredAbilities: []string{"view"}, Adapter: d, Verify: VerifyLocal(testRealm)}

	r := buildDigestRequest(http.MethodGet, "/protected", "bob", ha1, nonce, "00000001", "cnonce1", "auth")
	w := httptest.NewRecorder()

	username, ok := g.Authenticate(w, r, route)
	require.True(t, ok)
	assert.Equal(t, "bob", username)
}

// Scenario D: Digest stale nonce.
func TestScenarioD_DigestStaleNonce(t *testing.T) {
	g, store := newTestGate(t)
	ha1 := md5hex("bob:example.com:secret")
	addUser(t, g, store, "bob", ha1, "admin")

	d, err := protocol.NewDigest(testRealm, "/", "serversecret")
	require.NoError(t, err)
	d.NonceLifetime = time.Millisecond
	nonce := mintNonce(t, d)
	time.Sleep(5 * time.Millisecond)

	route := &Route{AuthType: protocol.AuthDigest, RequiredAbilities: []string{"view"}, Adapter: d, Verify: VerifyLocal(testRealm)}

	r := buildDigestRequest(http.MethodGet, "/protected", "bob", ha1, nonce, "00000001", "cnonce1", "auth")
	w := httptest.NewRecorder()

	_, ok := g.Authenticate(w, r, route)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), `stale="FALSE"`)
}

// Scenario E: Form login + redirect.
func TestScenarioE_FormLoginRedirectsToReferrer(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "alice", "secret", "admin")

	route := &Route{AuthType: protocol.AuthForm, RequiredAbilities: nil, Adapter: &protocol.Form{LoginURL: "/login"}, Verify: VerifyLocal(testRealm)}

	body := url.Values{"username": {"alice"}, "password": {"secret"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	g.Login(w, r, route, "/dashboard")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Result().Cookies())
}

// Scenario F: cyclic role.
func TestScenarioF_CyclicRoleBoundedAbilities(t *testing.T) {
	g, store := newTestGate(t)
	_, err := store.AddRole("a", []string{"b"})
	require.NoError(t, err)
	_, err = store.AddRole("b", []string{"a", "terminal"})
	require.NoError(t, err)
	u := addUser(t, g, store, "user1", "pw", "a")

	assert.Equal(t, map[string]struct{}{"terminal": {}}, u.Abilities())
}

// Property 8: protocol discrimination — Digest route receiving a Basic
// header responds 400, not 401.
func TestProtocolDiscrimination_DigestRouteRejectsBasicHeader(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "bob", "pw", "admin")

	d, err := protocol.NewDigest(testRealm, "/", "serversecret")
	require.NoError(t, err)
	route := &Route{AuthType: protocol.AuthDigest, Adapter: d, Verify: VerifyLocal(testRealm)}

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.SetBasicAuth("bob", "secret")
	w := httptest.NewRecorder()

	_, ok := g.Authenticate(w, r, route)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Property 9: session fast path — a second request with the bound session
// cookie succeeds without any Authorization header at all.
func TestSessionFastPath_SkipsReauthentication(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "alice", md5hex("alice:example.com:secret"), "admin")

	route := &Route{AuthType: protocol.AuthBasic, RequiredAbilities: []string{"view"}, Adapter: &protocol.Basic{Realm: testRealm}, Verify: VerifyLocal(testRealm)}

	r1 := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r1.SetBasicAuth("alice", "secret")
	w1 := httptest.NewRecorder()
	username, ok := g.Authenticate(w1, r1, route)
	require.True(t, ok)
	require.Equal(t, "alice", username)

	cookies := w1.Result().Cookies()
	require.NotEmpty(t, cookies)

	r2 := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, c := range cookies {
		r2.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	username2, ok2 := g.Authenticate(w2, r2, route)
	require.True(t, ok2)
	assert.Equal(t, "alice", username2)
}

// autoLogin bypass.
func TestAutoLogin_BypassesAuthentication(t *testing.T) {
	g, _ := newTestGate(t)
	g.Config.AutoLogin = true
	route := &Route{AuthType: protocol.AuthBasic, Adapter: &protocol.Basic{Realm: testRealm}, Verify: VerifyLocal(testRealm)}

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	_, ok := g.Authenticate(w, r, route)
	assert.True(t, ok)
}

// AuthNone route bypass.
func TestAuthNone_Bypasses(t *testing.T) {
	g, _ := newTestGate(t)
	route := &Route{AuthType: protocol.AuthNone}
	r := httptest.NewRequest(http.MethodGet, "/public", nil)
	w := httptest.NewRecorder()
	_, ok := g.Authenticate(w, r, route)
	assert.True(t, ok)
}

func TestAuthorize_EmptyRequirementAdmitsAnyAuthenticatedUser(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "alice", "pw", "")
	route := &Route{RequiredAbilities: nil}
	assert.True(t, g.Authorize("alice", route))
}

func TestAuthorize_UnknownUserDenied(t *testing.T) {
	g, _ := newTestGate(t)
	route := &Route{RequiredAbilities: []string{"view"}}
	assert.False(t, g.Authorize("ghost", route))
}

func TestLogout_BasicRouteReturns401(t *testing.T) {
	g, store := newTestGate(t)
	addUser(t, g, store, "alice", md5hex("alice:example.com:secret"), "admin")
	route := &Route{AuthType: protocol.AuthBasic, Adapter: &protocol.Basic{Realm: testRealm}, Verify: VerifyLocal(testRealm)}

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.SetBasicAuth("alice", "secret")
	w := httptest.NewRecorder()
	_, ok := g.Authenticate(w, r, route)
	require.True(t, ok)
	cookies := w.Result().Cookies()

	logoutReq := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		logoutReq.AddCookie(c)
	}
	logoutW := httptest.NewRecorder()
	g.Logout(logoutW, logoutReq, route)

	assert.Equal(t, http.StatusUnauthorized, logoutW.Code)
}

func TestLogout_FormRouteReturns200(t *testing.T) {
	g, _ := newTestGate(t)
	route := &Route{AuthType: protocol.AuthForm}
	r := httptest.NewRequest(http.MethodGet, "/logout", nil)
	w := httptest.NewRecorder()
	g.Logout(w, r, route)
	assert.Equal(t, http.StatusOK, w.Code)
}
