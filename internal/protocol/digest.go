package protocol

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultNonceLifetime bounds how long a minted nonce remains fresh,
// mirroring auth.c's hardcoded 5-minute staleness window in
// parseDigestDetails ((when + (5 * 60)) < time(0)).
const DefaultNonceLifetime = 5 * time.Minute

// DefaultNonceCacheSize bounds the number of distinct nonces tracked for
// replay defense, grounded on mutineer-go-http-auth's DigestAuth.clients
// map sizing (ClientCacheSize/ClientCacheTolerance), reimplemented here as
// a bounded LRU rather than hand-rolled periodic purging.
const DefaultNonceCacheSize = 1000

type nonceState struct {
	lastNC uint64
}

// Digest implements RFC 2617 HTTP Digest authentication, grounded on
// auth.c's digestLogin/parseDigestDetails/createDigestNonce/parseDigestNonce/
// calcDigest. Unlike auth.c, the nonce-embedded secret is checked against
// the server's live secret (auth.c's equivalent check,
// `if (!smatch(secret, secret))`, compares a local variable against
// itself and is always true — a bug this adapter does not reproduce).
type Digest struct {
	Realm  string
	Domain string

	secret  string
	counter atomic.Uint64
	nonces  *lru.Cache[string, *nonceState]

	// NonceLifetime overrides DefaultNonceLifetime when non-zero.
	NonceLifetime time.Duration
}

var _ Adapter = (*Digest)(nil)

// NewDigest constructs a Digest adapter with a fresh server secret. secret
// must be stable for the process lifetime so nonces minted earlier keep
// validating (mirrors auth.c's process-lifetime `secret` global, seeded
// once in websOpenAuth).
func NewDigest(realm, domain, secret string) (*Digest, error) {
	cache, err := lru.New[string, *nonceState](DefaultNonceCacheSize)
	if err != nil {
		return nil, fmt.Errorf("protocol: digest: build nonce cache: %w", err)
	}
	return &Digest{Realm: realm, Domain: domain, secret: secret, nonces: cache}, nil
}

func (d *Digest) nonceLifetime() time.Duration {
	if d.NonceLifetime > 0 {
		return d.NonceLifetime
	}
	return DefaultNonceLifetime
}

// mintNonce builds "secret:realm:hex(time):hex(counter)" and base64-encodes
// it, matching auth.c's createDigestNonce fmt string exactly (':'-joined,
// time and counter in hex).
func (d *Digest) mintNonce(now time.Time) string {
	n := d.counter.Add(1)
	raw := fmt.Sprintf("%s:%s:%x:%x", d.secret, d.Realm, now.Unix(), n)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// AskLogin writes a WWW-Authenticate Digest challenge carrying a fresh nonce.
func (d *Digest) AskLogin(w http.ResponseWriter, r *http.Request) {
	nonce := d.mintNonce(time.Now())
	d.nonces.Add(nonce, &nonceState{})
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(
		`Digest realm="%s", domain="%s", qop="auth", nonce="%s", opaque="%s", algorithm="MD5", stale="FALSE"`,
		d.Realm, d.Domain, nonce, opaqueFor(d.Realm)))
	w.WriteHeader(http.StatusUnauthorized)
}

// opaqueFor derives the opaque value sent with every challenge from the
// realm, so it is the same fixed string for all challenges of a deployment
// (auth.c likewise sends one constant opaque string, which is never
// validated).
func opaqueFor(realm string) string {
	sum := 0
	for i := 0; i < len(realm); i++ {
		sum = sum*31 + int(realm[i])
	}
	return fmt.Sprintf("%08x", uint32(sum))
}

// Parse extracts and validates Digest credentials from the Authorization
// header, following parseDigestDetails's field dispatch and validation
// order: required-field presence, qop-dependent fields, nonce decode,
// secret/realm/qop/staleness checks.
func (d *Digest) Parse(r *http.Request) (*Bundle, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false, nil
	}
	const prefix = "Digest "
	if !strings.HasPrefix(header, prefix) {
		return nil, false, nil
	}
	params := parseDigestParams(strings.TrimPrefix(header, prefix))

	b := &Bundle{
		AuthType:  AuthDigest,
		Username:  params["username"],
		Realm:     params["realm"],
		Nonce:     params["nonce"],
		NC:        params["nc"],
		CNonce:    params["cnonce"],
		QOP:       params["qop"],
		DigestURI: params["uri"],
		Opaque:    params["opaque"],
		Response:  params["response"],
		Method:    r.Method,
	}
	if b.Username == "" || b.Realm == "" || b.Nonce == "" || b.Response == "" {
		return nil, true, fmt.Errorf("protocol: digest: missing required field")
	}
	if b.QOP != "" && (b.CNonce == "" || b.NC == "") {
		return nil, true, fmt.Errorf("protocol: digest: qop requires cnonce and nc")
	}

	secret, realm, when, err := parseDigestNonce(b.Nonce)
	if err != nil {
		return nil, true, fmt.Errorf("protocol: digest: malformed nonce: %w", err)
	}
	if secret != d.secret {
		return nil, true, fmt.Errorf("protocol: digest: nonce mismatch")
	}
	if realm != d.Realm {
		return nil, true, fmt.Errorf("protocol: digest: realm mismatch")
	}
	if b.QOP != "" && b.QOP != "auth" {
		return nil, true, fmt.Errorf("protocol: digest: unsupported qop")
	}
	if time.Since(when) > d.nonceLifetime() {
		return nil, true, fmt.Errorf("protocol: digest: stale nonce")
	}
	if err := d.checkReplay(b.Nonce, b.NC); err != nil {
		return nil, true, err
	}
	return b, true, nil
}

// checkReplay enforces that nc strictly increases for a given nonce, the
// same monotonic-counter defense as mutineer-go-http-auth's digest_client.nc
// tracking. An nc we have never tracked for this nonce (because the server
// restarted, or the nonce predates our cache) is accepted and recorded.
func (d *Digest) checkReplay(nonce, nc string) error {
	if nc == "" {
		return nil
	}
	n, err := strconv.ParseUint(nc, 16, 64)
	if err != nil {
		return fmt.Errorf("protocol: digest: malformed nc")
	}
	state, ok := d.nonces.Get(nonce)
	if !ok {
		d.nonces.Add(nonce, &nonceState{lastNC: n})
		return nil
	}
	if n <= state.lastNC {
		return fmt.Errorf("protocol: digest: replayed nc")
	}
	state.lastNC = n
	return nil
}

// parseDigestNonce reverses mintNonce: base64-decode, split on ':'.
func parseDigestNonce(nonce string) (secret, realm string, when time.Time, err error) {
	decoded, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil {
		return "", "", time.Time{}, err
	}
	parts := strings.SplitN(string(decoded), ":", 4)
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("expected 4 colon-separated fields")
	}
	secret, realm, hexTime, _ := parts[0], parts[1], parts[2], parts[3]
	unixTime, err := strconv.ParseInt(hexTime, 16, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("malformed timestamp")
	}
	return secret, realm, time.Unix(unixTime, 0), nil
}

// parseDigestParams parses a comma-separated key=value (optionally
// quoted) parameter list, following the same field grammar as auth.c's
// parseDigestDetails (quoted values may contain backslash-escapes; the
// comma after an unquoted value delimits the next pair).
func parseDigestParams(s string) map[string]string {
	out := map[string]string{}
	i := 0
	n := len(s)
	for i < n {
		for i < n && (s[i] == ' ' || s[i] == ',') {
			i++
		}
		start := i
		for i < n && s[i] != '=' {
			i++
		}
		if i >= n {
			break
		}
		key := strings.ToLower(strings.TrimSpace(s[start:i]))
		i++ // skip '='
		var value string
		if i < n && s[i] == '"' {
			i++
			var b strings.Builder
			for i < n && s[i] != '"' {
				if s[i] == '\\' && i+1 < n {
					i++
				}
				b.WriteByte(s[i])
				i++
			}
			value = b.String()
			i++ // skip closing quote
		} else {
			start = i
			for i < n && s[i] != ',' {
				i++
			}
			value = strings.TrimSpace(s[start:i])
		}
		if key != "" {
			out[key] = value
		}
	}
	return out
}
