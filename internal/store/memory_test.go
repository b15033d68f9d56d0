package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/store"
)

func TestMemory_FindByUsername(t *testing.T) {
	m := store.NewMemory([]config.SeedUser{
		{Subject: "sub-123", Email: "jdoe@acme.example", DisplayName: "John Doe"},
	})
	ctx := context.Background()

	u, err := m.FindByUsername(ctx, "JDoe@acme.example")
	if err != nil {
		t.Fatalf("case-insensitive lookup: %v", err)
	}
	if u.Email != "jdoe@acme.example" || u.DisplayName != "John Doe" {
		t.Fatalf("user: %+v", u)
	}

	// El subject configurado también resuelve al mismo usuario.
	bySub, err := m.FindByUsername(ctx, "sub-123")
	if err != nil {
		t.Fatalf("subject alias: %v", err)
	}
	if bySub.ID != u.ID {
		t.Fatal("subject alias must resolve to the same account")
	}

	if _, err := m.FindByUsername(ctx, "stranger@acme.example"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestMemory_ProvisionIsIdempotent(t *testing.T) {
	m := store.NewMemory(nil)
	ctx := context.Background()

	u1, err := m.Provision(ctx, "new@acme.example", "new@acme.example", "New User")
	if err != nil {
		t.Fatal(err)
	}
	u2, err := m.Provision(ctx, "new@acme.example", "other@acme.example", "Other")
	if err != nil {
		t.Fatal(err)
	}
	if u1.ID != u2.ID {
		t.Fatal("provisioning twice must return the same account")
	}

	found, err := m.FindByUsername(ctx, "new@acme.example")
	if err != nil || found.ID != u1.ID {
		t.Fatalf("provisioned user must be findable: %v", err)
	}
}
