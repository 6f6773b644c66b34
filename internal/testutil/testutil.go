// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"net/http"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tasknet/internal/api"
	"git.sr.ht/~jakintosh/tasknet/internal/database"
	"git.sr.ht/~jakintosh/tasknet/internal/routing"
	"git.sr.ht/~jakintosh/tasknet/internal/service"
)

// TestEnv provides all dependencies needed for testing
type TestEnv struct {
	DB      *database.SQLiteStore
	Service *service.Service
	Router  http.Handler
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()
	return SetupTestEnvWithTTL(t, service.DefaultAccessTTL, service.DefaultRefreshTTL)
}

// SetupTestEnvWithTTL is SetupTestEnv with explicit token lifetimes
func SetupTestEnvWithTTL(
	t *testing.T,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *TestEnv {
	t.Helper()

	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	svc := service.New(
		db.IdentityStore(),
		db.TokenStore(),
		accessTTL,
		refreshTTL,
		service.PasswordModeTesting,
	)

	return &TestEnv{
		DB:      db,
		Service: svc,
	}
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	env.Router = routing.BuildRouter(api.New(env.Service))
	return env
}

// RegisterTestUser creates a test user in the database
func (env *TestEnv) RegisterTestUser(
	t *testing.T,
	handle string,
	password string,
) {
	t.Helper()
	if err := env.Service.Register(handle, password); err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
}

// LoginTestUser obtains a credential pair for a registered user
func (env *TestEnv) LoginTestUser(
	t *testing.T,
	handle string,
	password string,
) service.TokenPair {
	t.Helper()
	pair, err := env.Service.ObtainPair(handle, password)
	if err != nil {
		t.Fatalf("failed to obtain test pair: %v", err)
	}
	return pair
}

// StoreTestToken inserts a token directly, bypassing the service
func (env *TestEnv) StoreTestToken(
	t *testing.T,
	kind service.TokenKind,
	handle string,
	token string,
	ttl time.Duration,
) {
	t.Helper()
	if err := env.DB.InsertToken(kind, handle, token, time.Now().Add(ttl)); err != nil {
		t.Fatalf("failed to store test %s token: %v", kind, err)
	}
}

// BearerHeader returns an Authorization header for access
func BearerHeader(access string) Header {
	return Header{
		Key:   "Authorization",
		Value: "Bearer " + access,
	}
}
