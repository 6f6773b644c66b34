package database_test

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/tasknet/internal/service"
)

func TestGetSecret_UnknownHandleWrapsErrNoRows(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	if err := store.InsertIdentity("alice", []byte("hash")); err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}

	// lookups are exact; misses keep sql.ErrNoRows reachable through the wrap
	for _, handle := range []string{"bob", "Alice", "alice ", ""} {
		_, err := store.GetSecret(handle)
		if !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("GetSecret(%q): expected wrapped sql.ErrNoRows, got %v", handle, err)
		}
		if err == sql.ErrNoRows {
			t.Errorf("GetSecret(%q): error is not wrapped with context", handle)
		}
	}
}

func TestInsertIdentity_DuplicateKeepsOriginalSecret(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	if err := store.InsertIdentity("alice", []byte("first")); err != nil {
		t.Fatalf("InsertIdentity failed: %v", err)
	}

	// a rejected duplicate does not overwrite the stored secret
	if err := store.InsertIdentity("alice", []byte("second")); err == nil {
		t.Fatal("expected error for duplicate handle")
	}
	secret, err := store.GetSecret("alice")
	if err != nil {
		t.Fatalf("GetSecret failed: %v", err)
	}
	if string(secret) != "first" {
		t.Errorf("secret = %q, want %q", secret, "first")
	}
}

func TestInsertIdentity_SecretsRoundTrip(t *testing.T) {
	t.Parallel()
	store := setupStore(t)

	cases := map[string][]byte{
		"bcrypt": []byte("$2a$04$abcdefghijklmnopqrstuuJ0yJ6pQm9lQ0m1nq2YQvQ8XQvY3l2K"),
		"binary": {0x00, 0x01, 0x02, 0xff, 0xfe, 0xfd},
		"long":   bytes.Repeat([]byte("x"), 4096),
	}

	// every secret comes back byte for byte under its own handle
	for handle, secret := range cases {
		if err := store.InsertIdentity(handle, secret); err != nil {
			t.Fatalf("InsertIdentity(%s) failed: %v", handle, err)
		}
	}
	for handle, want := range cases {
		got, err := store.GetSecret(handle)
		if err != nil {
			t.Errorf("GetSecret(%s) failed: %v", handle, err)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("GetSecret(%s) returned %d bytes that differ from the %d stored", handle, len(got), len(want))
		}
	}
}

func TestIdentityStore_BacksServiceAccounts(t *testing.T) {
	t.Parallel()
	store := setupStore(t)
	svc := service.New(
		store.IdentityStore(),
		store.TokenStore(),
		service.DefaultAccessTTL,
		service.DefaultRefreshTTL,
		service.PasswordModeTesting,
	)

	// the service detects free handles through the wrapped ErrNoRows
	if err := svc.Register("alice", "password"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := svc.Register("alice", "password"); !errors.Is(err, service.ErrHandleExists) {
		t.Errorf("expected ErrHandleExists, got %v", err)
	}

	// unknown accounts are reported as such, not as internal errors
	if _, err := svc.ObtainPair("bob", "password"); !errors.Is(err, service.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := svc.ObtainPair("alice", "password"); err != nil {
		t.Errorf("ObtainPair failed: %v", err)
	}
}
