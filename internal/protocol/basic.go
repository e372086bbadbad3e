package protocol

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Basic implements RFC 2617 HTTP Basic authentication, grounded on
// auth.c's parseBasicDetails (base64-decode, split on first ':') and
// basicLogin (WWW-Authenticate challenge).
type Basic struct {
	Realm string
}

var _ Adapter = (*Basic)(nil)

// Parse extracts credentials from the Authorization: Basic header.
func (b *Basic) Parse(r *http.Request) (*Bundle, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false, nil
	}
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return nil, false, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return nil, true, fmt.Errorf("protocol: basic: malformed credentials")
	}
	userAuth := string(decoded)
	colon := strings.IndexByte(userAuth, ':')
	if colon < 0 {
		return &Bundle{AuthType: AuthBasic}, true, nil
	}
	return &Bundle{
		AuthType: AuthBasic,
		Username: userAuth[:colon],
		Password: userAuth[colon+1:],
	}, true, nil
}

// AskLogin writes a 401 response with a WWW-Authenticate challenge.
func (b *Basic) AskLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s"`, b.Realm))
	w.WriteHeader(http.StatusUnauthorized)
}
