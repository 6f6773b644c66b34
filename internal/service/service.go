// Package service implements the business logic of the TaskNet dev API
// server: account registration, credential pair issuance, access refresh,
// bearer authorization and refresh revocation.
package service

import (
	"errors"
	"log"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenNotFound      = errors.New("token not found")
	ErrInternal           = errors.New("internal error")
	ErrHandleExists       = errors.New("handle already exists")
	ErrInvalidHandle      = errors.New("invalid handle")
	ErrInvalidPassword    = errors.New("invalid password")
)

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

// PasswordMode controls bcrypt cost for password hashing.
// Use PasswordModeProduction for real deployments and PasswordModeTesting only in tests.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost (10).
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// It panics outside of go test.
	PasswordModeTesting
)

func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !testing.Testing() {
			panic("service: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}

type TokenKind int

const (
	TokenAccess TokenKind = iota
	TokenRefresh
)

func (k TokenKind) String() string {
	switch k {
	case TokenAccess:
		return "access"
	case TokenRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// TokenPair is what a successful login hands out.
type TokenPair struct {
	Access  string
	Refresh string
}

// Service coordinates registration, login and token operations. It depends
// on storage interfaces (IdentityStore, TokenStore) for persistence.
type Service struct {
	identityStore IdentityStore
	tokenStore    TokenStore
	accessTTL     time.Duration
	refreshTTL    time.Duration
	passwordMode  PasswordMode
}

// New builds a Service. Non-positive TTLs make issued tokens expire
// immediately, which tests use to exercise expiry.
func New(
	identityStore IdentityStore,
	tokenStore TokenStore,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	passwordMode PasswordMode,
) *Service {
	if passwordMode == PasswordModeTesting {
		log.Println("WARNING: Using insecure password hashing (testing mode)")
	}
	return &Service{
		identityStore: identityStore,
		tokenStore:    tokenStore,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		passwordMode:  passwordMode,
	}
}

func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}
