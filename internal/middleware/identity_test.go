package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func identityEcho(t *testing.T) (http.Handler, *string, *string) {
	t.Helper()
	var got, body string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			body = string(b)
		}
	}))
	return h, &got, &body
}

func TestIdentity_QueryParamWins(t *testing.T) {
	h, got, _ := identityEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscribers?username=admin@acme",
		strings.NewReader(`{"username":"admin@beta"}`))
	req.Header.Set(headerIdentity, "admin@gamma")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *got != "admin@acme" {
		t.Fatalf("identity = %q, want query param value", *got)
	}
}

func TestIdentity_BodyField(t *testing.T) {
	h, got, body := identityEcho(t)

	payload := `{"username":"admin@beta","account_id":"ACC-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", strings.NewReader(payload))
	req.Header.Set(headerIdentity, "admin@gamma")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *got != "admin@beta" {
		t.Fatalf("identity = %q, want body value", *got)
	}
	if *body != payload {
		t.Fatalf("body not restored for handler: %q", *body)
	}
}

func TestIdentity_HeaderFallback(t *testing.T) {
	h, got, _ := identityEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribers", nil)
	req.Header.Set(headerIdentity, "salem99")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *got != "salem99" {
		t.Fatalf("identity = %q, want header value", *got)
	}
}

func TestIdentity_NonJSONBody(t *testing.T) {
	h, got, _ := identityEcho(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("not json"))
	req.Header.Set(headerIdentity, "salem99")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *got != "salem99" {
		t.Fatalf("identity = %q, want header fallback on non-JSON body", *got)
	}
}

func TestIdentity_Absent(t *testing.T) {
	h, got, _ := identityEcho(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if *got != "" {
		t.Fatalf("identity = %q, want empty", *got)
	}
}
