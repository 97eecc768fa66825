package tenant_test

import (
	"errors"
	"testing"

	"github.com/fiberdesk/fiberdesk/internal/domain"
	"github.com/fiberdesk/fiberdesk/internal/domain/tenant"
)

func TestParseUsername(t *testing.T) {
	tests := []struct {
		username string
		domain   string
		wantErr  bool
	}{
		{"admin@acme", "acme", false},
		{"admin@fiber-net.sa", "fiber-net.sa", false},
		{"admin@", "", true},
		{"user@acme", "", true},
		{"acme", "", true},
		{"admin@a@b", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := tenant.ParseUsername(tt.username)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidUsername) {
				t.Errorf("ParseUsername(%q) error = %v, want ErrInvalidUsername", tt.username, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUsername(%q) unexpected error: %v", tt.username, err)
			continue
		}
		if got != tt.domain {
			t.Errorf("ParseUsername(%q) = %q, want %q", tt.username, got, tt.domain)
		}
	}
}

func TestDeriveDatabaseName(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"acme", "tenant_acme"},
		{"Acme-2", "tenant_acme_2"},
		{"fiber net.SA", "tenant_fiber_net_sa"},
		{"--edge--", "tenant_edge"},
		{"a..b", "tenant_a_b"},
		{"9lives", "tenant_9lives"},
	}

	for _, tt := range tests {
		got, err := tenant.DeriveDatabaseName(tt.domain)
		if err != nil {
			t.Errorf("DeriveDatabaseName(%q) unexpected error: %v", tt.domain, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DeriveDatabaseName(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}
}

func TestDeriveDatabaseName_Idempotent(t *testing.T) {
	first, err := tenant.DeriveDatabaseName("Fiber Net-2.sa")
	if err != nil {
		t.Fatal(err)
	}
	second, err := tenant.DeriveDatabaseName("Fiber Net-2.sa")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("derivation not deterministic: %q vs %q", first, second)
	}

	// Re-deriving from the sanitized portion must not change the suffix.
	again, err := tenant.DeriveDatabaseName("fiber_net_2_sa")
	if err != nil {
		t.Fatal(err)
	}
	if again != "tenant_fiber_net_2_sa" {
		t.Fatalf("re-derivation changed name: %q", again)
	}
}

func TestDeriveDatabaseName_Invalid(t *testing.T) {
	for _, dom := range []string{"", "---", "..", "  "} {
		if _, err := tenant.DeriveDatabaseName(dom); !errors.Is(err, domain.ErrInvalidDatabaseName) {
			t.Errorf("DeriveDatabaseName(%q) error = %v, want ErrInvalidDatabaseName", dom, err)
		}
	}
}

func TestDeriveAlwataniDatabaseName(t *testing.T) {
	got, err := tenant.DeriveAlwataniDatabaseName("WS-10442")
	if err != nil {
		t.Fatal(err)
	}
	if got != "alwatani_ws_10442" {
		t.Fatalf("DeriveAlwataniDatabaseName = %q", got)
	}
}

func TestIsDomainQualified(t *testing.T) {
	if !tenant.IsDomainQualified("admin@acme") {
		t.Error("admin@acme should be domain-qualified")
	}
	if tenant.IsDomainQualified("someuser") {
		t.Error("someuser should not be domain-qualified")
	}
}
