// Package http exposes the inbound webhook and health endpoints.
package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/seito-lab/taskfunnel/pkg/utils/errutil"
	"github.com/seito-lab/taskfunnel/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
}

// New builds the HTTP router. The webhook secret is part of the URL path, so
// only callers knowing the full path can deliver updates.
func New(webhook *WebhookHandler, webhookSecret string) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK")) //nolint:errcheck // header already committed
	})

	r.Post("/hooks/chat/{secret}", requireSecret(webhookSecret, webhook))

	return &Server{router: r}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requireSecret rejects requests whose path secret does not match. The
// route parameter is only populated once chi has matched the route, so the
// check runs inside the routed handler rather than as middleware. The
// comparison goes through sha256 digests so it is constant-time regardless
// of length.
func requireSecret(secret string, next http.Handler) http.HandlerFunc {
	expected := sha256.Sum256([]byte(secret))

	return func(w http.ResponseWriter, r *http.Request) {
		got := sha256.Sum256([]byte(chi.URLParam(r, "secret")))
		if secret == "" || !hmac.Equal(expected[:], got[:]) {
			errutil.HandleHTTP(r.Context(), w, goerr.New("webhook secret mismatch"), http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// accessLogger is a middleware that logs HTTP requests. The webhook secret
// is part of the path and must not end up in the log.
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		path := r.URL.Path
		if strings.HasPrefix(path, "/hooks/chat/") {
			path = "/hooks/chat/{secret}"
		}

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
