package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
)

// CookieName is the name of the cookie carrying the session token.
const CookieName = "authcore_session"

// CookieCodec signs the session token placed in the client's cookie (and
// encrypts it when a block key is given), so the token on the wire cannot
// be forged even though the server-side Store keys on the token's SHA-256
// hash rather than its plaintext. The gate always reads and writes the
// session cookie through its CookieCodec.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

// NewCookieCodec builds a codec from a hash key (required, 32 or 64 bytes)
// and an optional block key (16/24/32 bytes) for encryption.
func NewCookieCodec(hashKey, blockKey []byte) *CookieCodec {
	return &CookieCodec{sc: securecookie.New(hashKey, blockKey)}
}

// SetCookie writes the signed session token as an HttpOnly, Secure cookie.
func (c *CookieCodec) SetCookie(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(CookieName, token)
	if err != nil {
		return fmt.Errorf("session: encode cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ReadCookie extracts and verifies the session token from the request's
// cookie jar. ok is false when no cookie is present or it fails to verify.
func (c *CookieCodec) ReadCookie(r *http.Request) (token string, ok bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	var decoded string
	if err := c.sc.Decode(CookieName, cookie.Value, &decoded); err != nil {
		return "", false
	}
	return decoded, true
}

// ClearCookie expires the session cookie immediately (logout).
func (c *CookieCodec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
