package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig selects how API requests are authenticated. With both fields
// empty authentication is disabled.
type AuthConfig struct {
	// APIKey is compared in constant time.
	APIKey string
	// APIKeyHash is a bcrypt hash of the key.
	APIKeyHash string
	// Public lists exact paths served without a key.
	Public []string
}

// Auth returns middleware that validates a Bearer token in the Authorization
// header or a key in the X-API-Key header.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(cfg.Public))
	for _, p := range cfg.Public {
		public[p] = true
	}
	verify := verifier(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verify == nil || public[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
				return
			}
			if !verify(token) {
				writeJSONError(w, http.StatusUnauthorized, "invalid authentication token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifier returns the token check for cfg, or nil when auth is disabled.
func verifier(cfg AuthConfig) func(token string) bool {
	switch {
	case cfg.APIKeyHash != "":
		hash := []byte(cfg.APIKeyHash)
		return func(token string) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte(token)) == nil
		}
	case cfg.APIKey != "":
		key := []byte(cfg.APIKey)
		return func(token string) bool {
			return subtle.ConstantTimeCompare([]byte(token), key) == 1
		}
	}
	return nil
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header. Browsers cannot set headers on WebSocket
// upgrades, so /ws also accepts ?token=.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	if r.URL.Path == "/ws" {
		return strings.TrimSpace(r.URL.Query().Get("token"))
	}
	return ""
}

// writeJSONError sends {"error": msg} with the given status.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
