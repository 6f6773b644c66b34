package service_test

import (
	"errors"
	"testing"

	"git.sr.ht/~jakintosh/tasknet/internal/service"
	"git.sr.ht/~jakintosh/tasknet/internal/testutil"
	"github.com/google/uuid"
)

func TestObtainPair_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password123")

	// valid login returns an access and a refresh credential
	pair, err := env.Service.ObtainPair("alice", "password123")
	if err != nil {
		t.Fatalf("ObtainPair failed: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatalf("expected a full pair, got %+v", pair)
	}
	if pair.Access == pair.Refresh {
		t.Error("access and refresh must differ")
	}
}

func TestObtainPair_TokensAreOpaqueUUIDs(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password123")

	// credentials parse as UUIDs
	pair := env.LoginTestUser(t, "alice", "password123")
	if _, err := uuid.Parse(pair.Access); err != nil {
		t.Errorf("access not a uuid: %v", err)
	}
	if _, err := uuid.Parse(pair.Refresh); err != nil {
		t.Errorf("refresh not a uuid: %v", err)
	}
}

func TestObtainPair_StoresTokens(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password123")
	pair := env.LoginTestUser(t, "alice", "password123")

	// both tokens are stored with alice as owner
	owner, _, err := env.DB.GetTokenOwner(service.TokenRefresh, pair.Refresh)
	if err != nil {
		t.Fatalf("refresh not stored: %v", err)
	}
	if owner != "alice" {
		t.Errorf("refresh owner = %s, want alice", owner)
	}
	owner, _, err = env.DB.GetTokenOwner(service.TokenAccess, pair.Access)
	if err != nil {
		t.Fatalf("access not stored: %v", err)
	}
	if owner != "alice" {
		t.Errorf("access owner = %s, want alice", owner)
	}
}

func TestObtainPair_WrongPassword(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password123")

	// wrong password returns ErrInvalidCredentials
	_, err := env.Service.ObtainPair("alice", "wrongpassword")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestObtainPair_UnknownUser(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// unknown user returns ErrAccountNotFound
	_, err := env.Service.ObtainPair("unknown", "password")
	if !errors.Is(err, service.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}
