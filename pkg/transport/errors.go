package transport

import (
	"errors"
	"fmt"
)

var (
	ErrRefreshRequest  = errors.New("failed to request credential refresh")
	ErrRefreshRejected = errors.New("credential refresh rejected")
	ErrRefreshResponse = errors.New("invalid credential refresh response")
	ErrRefreshPersist  = errors.New("failed to persist refreshed credential")
	ErrRefreshAborted  = errors.New("credential refresh aborted")
)

// RefreshError reports a non-2xx answer from the refresh endpoint.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%v: status %d", ErrRefreshRejected, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrRefreshRejected, e.StatusCode, e.Body)
}

func (e *RefreshError) Unwrap() error {
	return ErrRefreshRejected
}
