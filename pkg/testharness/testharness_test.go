package testharness

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tasknet/pkg/api"
	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	args := buildArgs(Config{
		ListenAddr: "127.0.0.1:0",
		DBPath:     "/tmp/dev.db",
		AccessTTL:  time.Minute,
		Quiet:      true,
		Users: []User{
			{Handle: "alice", Password: "password123"},
			{Handle: "bob", Password: "secret456"},
		},
	})

	expected := []string{
		"--listen", "127.0.0.1:0",
		"--db", "/tmp/dev.db",
		"--access-ttl", "1m0s",
		"--quiet",
		"--user", "alice:password123",
		"--user", "bob:secret456",
	}
	if !slices.Equal(args, expected) {
		t.Errorf("args = %v, want %v", args, expected)
	}

	if args := buildArgs(Config{}); len(args) != 0 {
		t.Errorf("empty config should produce no args, got %v", args)
	}
}

func TestParseContract(t *testing.T) {
	t.Parallel()

	line := `{"base_url":"http://127.0.0.1:4000","api_base":"http://127.0.0.1:4000/api",` +
		`"db_path":":memory:","access_ttl":"5m0s","refresh_ttl":"24h0m0s",` +
		`"users":[{"handle":"test","password":"test"}]}`
	h, err := parseContract([]byte(line))
	if err != nil {
		t.Fatalf("parseContract failed: %v", err)
	}
	if h.APIBase != "http://127.0.0.1:4000/api" {
		t.Errorf("APIBase = %q", h.APIBase)
	}
	if h.AccessTTL != 5*time.Minute || h.RefreshTTL != 24*time.Hour {
		t.Errorf("ttls = %v %v", h.AccessTTL, h.RefreshTTL)
	}
	if len(h.Users) != 1 || h.Users[0].Handle != "test" {
		t.Errorf("users = %v", h.Users)
	}

	bad := []string{
		`not json`,
		`{"base_url":"http://x"}`,
		`{"base_url":"http://x","api_base":"http://x/api","access_ttl":"soon","refresh_ttl":"1h"}`,
	}
	for _, line := range bad {
		if _, err := parseContract([]byte(line)); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}

func TestStart(t *testing.T) {
	h := Start(t, Config{
		Users: []User{
			{Handle: "alice", Password: "password123"},
		},
		AccessTTL: time.Minute,
		Quiet:     true,
	})

	if h.AccessTTL != time.Minute {
		t.Errorf("expected AccessTTL 1m, got %v", h.AccessTTL)
	}
	if len(h.Users) != 1 || h.Users[0].Handle != "alice" {
		t.Fatalf("unexpected users %v", h.Users)
	}

	// log in and call an authenticated endpoint through the transport
	store := credentials.NewMemoryStore()
	tr := transport.New(store, transport.NewHTTPRefresher(h.APIBase, nil))
	client := api.New(h.APIBase, tr.Client())

	ctx := context.Background()
	pair, err := client.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if err := credentials.Save(store, pair); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	username, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected username alice, got %s", username)
	}

	if _, err := client.Login(ctx, "alice", "wrong"); !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
