// Package server assembles the HTTP route table (C7) over chi, mounting
// protected routes behind the gate and exposing the registered form
// actions (§6: "login and logout are registered at openAuth time").
// Grounded on TerraConstructs-grid's internal/server/router.go, trimmed of
// the Connect-RPC/OIDC/state-service mounting that has no place here.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/litehttp/authcore/internal/gate"
)

// RouterOptions controls router construction. The zero value is valid for
// Routes/FormRoute; Gate must always be supplied.
type RouterOptions struct {
	Gate        *gate.Gate
	Routes      map[string]*ProtectedRoute
	FormRoute   *gate.Route // route used by the login/logout actions, may be nil
	LoginURL    string
	CORSOptions *cors.Options
}

// ProtectedRoute pairs an HTTP path with the gate.Route guarding it and the
// handler to invoke once authentication and authorization succeed.
type ProtectedRoute struct {
	Method  string
	Route   *gate.Route
	Handler http.HandlerFunc
}

// DefaultCORSOptions returns a permissive development CORS policy; a
// production deployment should supply its own via RouterOptions.CORSOptions.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles a chi.Router guarding every entry in opts.Routes
// behind opts.Gate, plus /login and /logout when opts.FormRoute is set.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for path, pr := range opts.Routes {
		r.Method(pr.Method, path, guarded(opts.Gate, pr.Route, pr.Handler))
	}

	if opts.FormRoute != nil {
		r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
			referrer := req.URL.Query().Get("referrer")
			opts.Gate.Login(w, req, opts.FormRoute, referrer)
		})
		r.Get("/logout", func(w http.ResponseWriter, req *http.Request) {
			opts.Gate.Logout(w, req, opts.FormRoute)
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// guarded wraps handler with the gate's authenticate-then-authorize
// sequence, the HTTP-facing realization of auth.c's websAuthenticate
// check inserted ahead of every route handler invocation.
func guarded(g *gate.Gate, route *gate.Route, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := g.Authenticate(w, r, route)
		if !ok {
			return
		}
		// An empty username means authentication was bypassed (autoLogin,
		// or route.AuthType == AuthNone); there is no identity to check
		// abilities against, so authorization is skipped too.
		if username != "" && !g.Authorize(username, route) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		handler(w, r)
	}
}
