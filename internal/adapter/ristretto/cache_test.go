package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/fiberdesk/fiberdesk/internal/adapter/ristretto"
)

func TestCache_RoundTrip(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "dir:acme", []byte(`{"domain":"acme"}`), time.Minute); err != nil {
		t.Fatal(err)
	}

	val, found, err := c.Get(ctx, "dir:acme")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected hit after Set")
	}
	if string(val) != `{"domain":"acme"}` {
		t.Fatalf("unexpected value: %s", val)
	}

	if err := c.Delete(ctx, "dir:acme"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "dir:acme"); found {
		t.Fatal("expected miss after Delete")
	}
}

func TestCache_Miss(t *testing.T) {
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, found, _ := c.Get(context.Background(), "dir:unknown"); found {
		t.Fatal("expected miss for unknown key")
	}
}
