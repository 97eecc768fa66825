package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const headerIdentity = "X-Fiberdesk-User"

// maxIdentityBodyBytes bounds how much of a request body is buffered while
// looking for the username field.
const maxIdentityBodyBytes = 1 << 20

type identityCtxKey struct{}

// Identity extracts the requesting user's identity and stores it in the
// request context. Sources are consulted in a fixed priority order: the
// username query parameter, then a top-level username field in a JSON body,
// then the X-Fiberdesk-User header. Requests with no identity pass through
// with an empty value; handlers that require one reject those themselves.
//
// When the body is consulted it is buffered and restored, so handlers can
// still decode it.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := r.URL.Query().Get("username")

		if identity == "" && r.Body != nil && r.Body != http.NoBody {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdentityBodyBytes))
			if err != nil {
				http.Error(w, `{"success":false,"error":"failed to read request body"}`, http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var probe struct {
				Username string `json:"username"`
			}
			if err := json.Unmarshal(body, &probe); err == nil {
				identity = probe.Username
			}
		}

		if identity == "" {
			identity = r.Header.Get(headerIdentity)
		}

		ctx := context.WithValue(r.Context(), identityCtxKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity stored in ctx, or "" if absent.
func IdentityFromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityCtxKey{}).(string)
	return id
}
