package cmd

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/litehttp/authcore/internal/ability"
	"github.com/litehttp/authcore/internal/gate"
	"github.com/litehttp/authcore/internal/identity"
	"github.com/litehttp/authcore/internal/protocol"
	"github.com/litehttp/authcore/internal/server"
	"github.com/litehttp/authcore/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo authentication server",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := identity.New()
		if _, err := os.Stat(cfg.UsersFile); err == nil {
			if err := store.Load(cfg.UsersFile); err != nil {
				return fmt.Errorf("load users file: %w", err)
			}
			log.Printf("Loaded identity store from %s", cfg.UsersFile)
		} else {
			log.Printf("No users file at %s; starting with an empty identity store", cfg.UsersFile)
		}

		resolver := ability.New(store, cfg.AbilityMaxDepth)
		resolver.ComputeAll()

		binder := session.NewBinder(session.NewMemoryStore(), 0)
		cookies := session.NewCookieCodec(cfg.CookieHashKey, cfg.CookieBlockKey)

		g := gate.New(store, resolver, binder, cookies, gate.Config{
			Realm:     cfg.Realm,
			AutoLogin: cfg.AutoLogin,
		})

		digestAdapter, err := protocol.NewDigest(cfg.Realm, "/", randomSecret())
		if err != nil {
			return fmt.Errorf("build digest adapter: %w", err)
		}
		digestAdapter.NonceLifetime = cfg.NonceLifetime
		basicAdapter := &protocol.Basic{Realm: cfg.Realm}
		formAdapter := &protocol.Form{LoginURL: cfg.LoginURL}

		verify := gate.VerifyLocal(cfg.Realm)

		routes := map[string]*server.ProtectedRoute{
			"/api/public": {
				Method:  http.MethodGet,
				Route:   &gate.Route{AuthType: protocol.AuthNone},
				Handler: writeOK,
			},
			"/api/basic": {
				Method:  http.MethodGet,
				Route:   &gate.Route{AuthType: protocol.AuthBasic, Adapter: basicAdapter, Verify: verify, RequiredAbilities: []string{"view"}},
				Handler: writeOK,
			},
			"/api/digest": {
				Method:  http.MethodGet,
				Route:   &gate.Route{AuthType: protocol.AuthDigest, Adapter: digestAdapter, Verify: verify, RequiredAbilities: []string{"view"}},
				Handler: writeOK,
			},
			"/api/admin": {
				Method:  http.MethodGet,
				Route:   &gate.Route{AuthType: protocol.AuthBasic, Adapter: basicAdapter, Verify: verify, RequiredAbilities: []string{"admin"}},
				Handler: writeOK,
			},
		}

		formRoute := &gate.Route{AuthType: protocol.AuthForm, Adapter: formAdapter, Verify: verify}

		r := server.NewRouter(server.RouterOptions{
			Gate:      g,
			Routes:    routes,
			FormRoute: formRoute,
			LoginURL:  cfg.LoginURL,
		})

		srv := &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("authcored listening on %s", cfg.ListenAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case sig := <-shutdown:
			log.Printf("received signal %v, shutting down gracefully", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			log.Printf("server stopped")
		}
		return nil
	},
}

func writeOK(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// randomSecret mints the process-lifetime Digest secret mixed into every
// nonce (auth.c's websOpenAuth seeding its global secret once at startup).
func randomSecret() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable; a predictable secret would
		// make every minted nonce forgeable.
		log.Fatalf("authcored: generate digest secret: %v", err)
	}
	return fmt.Sprintf("%x", buf)
}
