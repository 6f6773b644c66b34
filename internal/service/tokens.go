package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

func (s *Service) issue(
	kind TokenKind,
	handle string,
	ttl time.Duration,
) (
	string,
	error,
) {
	token := uuid.NewString()
	expiration := time.Now().Add(ttl)
	if err := s.tokenStore.InsertToken(kind, handle, token, expiration); err != nil {
		return "", fmt.Errorf("%w: failed to store %s token: %v", ErrInternal, kind, err)
	}
	return token, nil
}

// lookup resolves a token to its owner. Expired tokens are deleted and
// reported as ErrTokenExpired, unknown ones as ErrTokenNotFound; both wrap
// ErrTokenInvalid.
func (s *Service) lookup(
	kind TokenKind,
	token string,
) (
	string,
	error,
) {
	if token == "" {
		return "", fmt.Errorf("%w: empty %s token", ErrTokenInvalid, kind)
	}

	handle, expiration, err := s.tokenStore.GetTokenOwner(kind, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenNotFound)
		}
		return "", fmt.Errorf("%w: failed to look up %s token: %v", ErrInternal, kind, err)
	}

	if !time.Now().Before(expiration) {
		if _, err := s.tokenStore.DeleteToken(kind, token); err != nil {
			log.Printf("service: couldn't delete expired %s token: %v", kind, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenExpired)
	}

	return handle, nil
}

// RefreshAccess issues a new access credential for a valid refresh
// credential. The refresh credential stays valid.
func (s *Service) RefreshAccess(
	refresh string,
) (
	string,
	error,
) {
	handle, err := s.lookup(TokenRefresh, refresh)
	if err != nil {
		return "", err
	}
	return s.issue(TokenAccess, handle, s.accessTTL)
}

// Authorize returns the handle owning a valid access credential.
func (s *Service) Authorize(
	access string,
) (
	string,
	error,
) {
	return s.lookup(TokenAccess, access)
}

// Revoke invalidates a refresh credential.
func (s *Service) Revoke(
	refresh string,
) error {
	if refresh == "" {
		return fmt.Errorf("%w: empty refresh token", ErrTokenInvalid)
	}
	deleted, err := s.tokenStore.DeleteToken(TokenRefresh, refresh)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenNotFound)
	}
	return nil
}

// PurgeExpired drops expired tokens of both kinds.
func (s *Service) PurgeExpired() (int64, error) {
	now := time.Now()
	var total int64
	for _, kind := range []TokenKind{TokenAccess, TokenRefresh} {
		n, err := s.tokenStore.DeleteExpiredTokens(kind, now)
		if err != nil {
			return total, fmt.Errorf("%w: %v", ErrInternal, err)
		}
		total += n
	}
	return total, nil
}
