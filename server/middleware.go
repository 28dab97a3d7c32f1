package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/dotside-studios/davi-uhf-agent/protocol"
)

// enableCORS adds CORS headers to every response and answers preflight
// requests directly.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", CORSAllowMethods)
		w.Header().Set("Access-Control-Allow-Headers", CORSAllowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSecret rejects requests without the configured API secret. Browsers
// cannot set headers on a WebSocket handshake, so the secret is also
// accepted as the "secret" query parameter.
func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APISecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		got := r.Header.Get(APISecretHeader)
		if got == "" {
			got = r.URL.Query().Get("secret")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.config.APISecret)) != 1 {
			s.logger.Printf("Rejected %s %s from %s: invalid API secret", r.Method, r.URL.Path, r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, protocol.Error("", "", protocol.ErrCodeUnauthorized, "invalid API secret"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
