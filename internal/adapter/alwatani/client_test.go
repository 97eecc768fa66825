package alwatani_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/adapter/alwatani"
	"github.com/fiberdesk/fiberdesk/internal/config"
	"github.com/fiberdesk/fiberdesk/internal/domain/subscriber"
)

func newTestClient(t *testing.T, handler http.Handler) *alwatani.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return alwatani.NewClient(config.Alwatani{
		BaseURL:  srv.URL,
		PageSize: 50,
		Timeout:  5 * time.Second,
	})
}

func TestClient_Login(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "ws-10442" {
			t.Errorf("unexpected username %q", creds["username"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	}))

	token, err := client.Login(context.Background(), "ws-10442", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-1" {
		t.Fatalf("token = %q", token)
	}
}

func TestClient_LoginRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))

	if _, err := client.Login(context.Background(), "ws-10442", "wrong"); err == nil {
		t.Fatal("expected error for rejected login")
	}
}

func TestClient_FetchSubscribers(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "50" {
			t.Errorf("per_page = %q", got)
		}
		_ = json.NewEncoder(w).Encode(subscriber.Page{
			Subscribers: []subscriber.Subscriber{{ID: "s1", Name: "Ahmed"}},
			Page:        2,
			TotalPages:  3,
			TotalCount:  120,
		})
	}))

	page, err := client.FetchSubscribers(context.Background(), "tok-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalPages != 3 || len(page.Subscribers) != 1 || page.Subscribers[0].Name != "Ahmed" {
		t.Fatalf("unexpected page: %+v", page)
	}
}
