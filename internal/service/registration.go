package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const maxHandleLength = 64

func (s *Service) Register(
	handle string,
	password string,
) error {
	if err := validateHandle(handle); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPassword)
	}

	_, err := s.identityStore.GetSecret(handle)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrHandleExists, handle)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: failed to check handle: %v", ErrInternal, err)
	}

	hashPass, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordMode.Cost())
	if err != nil {
		return fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	err = s.identityStore.InsertIdentity(handle, hashPass)
	if err != nil {
		return fmt.Errorf("%w: failed to insert account: %v", ErrInternal, err)
	}

	return nil
}

func validateHandle(handle string) error {
	if handle == "" {
		return fmt.Errorf("%w: empty", ErrInvalidHandle)
	}
	if len(handle) > maxHandleLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidHandle, maxHandleLength)
	}
	if strings.ContainsFunc(handle, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == ':'
	}) {
		return fmt.Errorf("%w: '%s' contains whitespace, control characters or ':'", ErrInvalidHandle, handle)
	}
	return nil
}
