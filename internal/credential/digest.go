package credential

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/litehttp/authcore/internal/identity"
	"github.com/litehttp/authcore/internal/protocol"
)

// VerifyDigest checks a parsed Digest bundle's response against the
// identity store, following auth.c's calcDigest exactly: HA1 is the stored
// password taken as is (the identity loader stores passwords verbatim, so
// only users whose password was stored in HA1 form can pass), HA2 from method:uri, and the
// final digest from qop-dependent concatenation of HA1:nonce:nc:cnonce:qop:HA2
// (or HA1:nonce:HA2 when qop is empty).
func VerifyDigest(store *identity.Store, b *protocol.Bundle) bool {
	u, ok := store.LookupUser(b.Username)
	if !ok {
		return false
	}
	ha1 := u.Password
	ha2 := md5Hex(fmt.Sprintf("%s:%s", b.Method, b.DigestURI))

	var expected string
	if b.QOP == "auth" || b.QOP == "auth-int" {
		expected = md5Hex(fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, b.Nonce, b.NC, b.CNonce, b.QOP, ha2))
	} else {
		expected = md5Hex(fmt.Sprintf("%s:%s:%s", ha1, b.Nonce, ha2))
	}
	return constantTimeEqual(expected, b.Response)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
