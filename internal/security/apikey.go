// Package security provides the HTTP API-key middleware for the remote
// transport. Stdio transport runs unauthenticated; it is already gated by
// process ownership.
package security

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Options configures the API-key check.
type Options struct {
	// Keys are the accepted API keys. Empty means every request is rejected;
	// enabling the middleware without keys is a configuration mistake that
	// must fail closed.
	Keys []string

	// Header carrying the key, e.g. "x-api-key".
	Header string

	// AllowBearer also accepts "Authorization: Bearer <key>".
	AllowBearer bool

	// ExemptPaths skip the check entirely (health probes).
	ExemptPaths []string

	// OnReject is called for every rejected request; used to feed the
	// auth-failure metric.
	OnReject func(r *http.Request)
}

// APIKeyAuth returns a middleware enforcing the configured API keys.
func APIKeyAuth(opts Options) func(http.Handler) http.Handler {
	header := opts.Header
	if header == "" {
		header = "x-api-key"
	}

	exempt := make(map[string]bool, len(opts.ExemptPaths))
	for _, p := range opts.ExemptPaths {
		exempt[normalizePath(p)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflights carry no credentials
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if exempt[normalizePath(r.URL.Path)] {
				next.ServeHTTP(w, r)
				return
			}

			if keyAccepted(r, header, opts) {
				next.ServeHTTP(w, r)
				return
			}

			if opts.OnReject != nil {
				opts.OnReject(r)
			}
			reject(w)
		})
	}
}

func keyAccepted(r *http.Request, header string, opts Options) bool {
	if key := r.Header.Get(header); key != "" && matchKey(key, opts.Keys) {
		return true
	}

	if opts.AllowBearer {
		auth := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return matchKey(token, opts.Keys)
		}
	}
	return false
}

func matchKey(candidate string, keys []string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(k)) == 1 {
			return true
		}
	}
	return false
}

func reject(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": "Missing or invalid API key",
	})
}

func normalizePath(p string) string {
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
