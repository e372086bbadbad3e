package protocol

import "net/http"

// Form implements form-based login: credentials arrive as POST body fields
// rather than a header, grounded on auth.c's loginServiceProc (reads
// "username"/"password" form vars, then calls websLoginUser). Unlike
// Basic/Digest, Form never offers re-authentication mid-request; a failed
// login redirects to LoginURL instead of sending a challenge header.
type Form struct {
	LoginURL string
}

var _ Adapter = (*Form)(nil)

// Parse reads username/password from POST form fields. It returns ok=false
// when the request is not a form submission to this route at all (GET
// requests that merely view a protected page under Form auth never carry
// credentials and fall through to AskLogin).
func (f *Form) Parse(r *http.Request) (*Bundle, bool, error) {
	if r.Method != http.MethodPost {
		return nil, false, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, true, err
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" {
		return nil, false, nil
	}
	return &Bundle{AuthType: AuthForm, Username: username, Password: password}, true, nil
}

// AskLogin redirects the client to the login form.
func (f *Form) AskLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, f.LoginURL, http.StatusFound)
}
