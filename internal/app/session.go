package app

import (
	"context"
	"sync"

	"git.sr.ht/~jakintosh/tasknet/internal/events"
	"git.sr.ht/~jakintosh/tasknet/pkg/api"
	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
)

// Session tracks whether the user is logged in. It learns about forced
// logouts from the unauthorized event and, for file stores, from changes
// made by other processes.
type Session struct {
	store    credentials.Store
	api      *api.Client
	logLevel transport.LogLevel

	mu          sync.Mutex
	known       credentials.Pair
	expired     bool
	unsubscribe func()
}

func newSession(
	store credentials.Store,
	client *api.Client,
	bus *events.Bus,
	logLevel transport.LogLevel,
) *Session {
	s := &Session{
		store:    store,
		api:      client,
		logLevel: logLevel,
		known:    credentials.Load(store),
	}
	s.unsubscribe = bus.Subscribe(events.Unauthorized, s.unauthorized)
	return s
}

// Login obtains a credential pair and stores it.
func (s *Session) Login(ctx context.Context, username, password string) error {
	pair, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := credentials.Save(s.store, pair); err != nil {
		return err
	}

	s.mu.Lock()
	s.known = pair
	s.expired = false
	s.mu.Unlock()

	logf(s.logLevel, transport.LogLevelInfo, "logged in as %s", username)
	return nil
}

// Logout clears stored credentials. The refresh credential is also revoked
// on the server when possible; a failed revocation is only logged.
func (s *Session) Logout(ctx context.Context) error {
	refresh, hasRefresh := s.store.Get(credentials.RefreshKey)

	err := credentials.Clear(s.store)

	s.mu.Lock()
	s.known = credentials.Pair{}
	s.expired = false
	s.mu.Unlock()

	if hasRefresh {
		if revokeErr := s.api.Logout(ctx, refresh); revokeErr != nil {
			logf(s.logLevel, transport.LogLevelInfo, "couldn't revoke refresh credential: %v", revokeErr)
		}
	}
	return err
}

func (s *Session) LoggedIn() bool {
	return credentials.Load(s.store).LoggedIn()
}

// Expired reports whether the session ended without a local Logout, either
// because the refresh credential was rejected or because another process
// removed the credentials.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

// Username asks the server who the stored credentials belong to.
func (s *Session) Username(ctx context.Context) (string, error) {
	return s.api.Me(ctx)
}

func (s *Session) Close() error {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

func (s *Session) unauthorized() {
	s.mu.Lock()
	s.known = credentials.Pair{}
	s.expired = true
	s.mu.Unlock()

	logf(s.logLevel, transport.LogLevelError, "session expired, please log in again")
}

func (s *Session) storeChanged() {
	current := credentials.Load(s.store)

	s.mu.Lock()
	previous := s.known
	s.known = current
	forced := previous.LoggedIn() && !current.LoggedIn()
	if forced {
		s.expired = true
	}
	s.mu.Unlock()

	switch {
	case forced:
		logf(s.logLevel, transport.LogLevelInfo, "credentials removed by another process")
	case current != previous:
		logf(s.logLevel, transport.LogLevelDebug, "credentials changed on disk")
	}
}
