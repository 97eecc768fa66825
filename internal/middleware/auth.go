package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth returns middleware that requires Authorization: Bearer <token>
// with the configured static token. Comparison is constant-time. An empty
// configured token locks the surface entirely rather than opening it.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			presented := strings.TrimPrefix(authHeader, "Bearer ")
			if presented == authHeader {
				// Websocket clients cannot set headers; fall back to ?token=.
				presented = r.URL.Query().Get("token")
			}

			if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				http.Error(w, `{"success":false,"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
