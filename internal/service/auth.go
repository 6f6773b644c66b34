package service

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ObtainPair checks the password and issues a fresh access and refresh
// credential for handle.
func (s *Service) ObtainPair(
	handle string,
	secret string,
) (
	TokenPair,
	error,
) {
	if err := s.authenticate(handle, secret); err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.issue(TokenRefresh, handle, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := s.issue(TokenAccess, handle, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *Service) authenticate(
	handle string,
	secret string,
) error {
	hash, err := s.identityStore.GetSecret(handle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, handle)
		}
		return fmt.Errorf("%w: failed to retrieve secret: %v", ErrInternal, err)
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if err != nil {
		return ErrInvalidCredentials
	}

	return nil
}
