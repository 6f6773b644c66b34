// Package tasknettest runs an in-process TaskNet dev API for tests of code
// built on pkg/transport and pkg/api.
//
//	srv := tasknettest.NewServer(t)
//	srv.AddUser(t, "alice", "password")
//	store := credentials.NewMemoryStore()
//	credentials.Save(store, srv.Login(t, "alice", "password"))
//	client := srv.Client(store)
package tasknettest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tasknet/internal/api"
	"git.sr.ht/~jakintosh/tasknet/internal/database"
	"git.sr.ht/~jakintosh/tasknet/internal/routing"
	"git.sr.ht/~jakintosh/tasknet/internal/service"
	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
)

// Options configures token lifetimes of the test server.
type Options struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Server is a running dev API backed by in-memory SQLite.
type Server struct {
	*httptest.Server
	service *service.Service
}

// NewServer starts a server with default lifetimes. It is closed by
// t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	return NewServerWithOptions(t, Options{})
}

func NewServerWithOptions(t testing.TB, opts Options) *Server {
	t.Helper()
	if opts.AccessTTL == 0 {
		opts.AccessTTL = service.DefaultAccessTTL
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = service.DefaultRefreshTTL
	}

	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("tasknettest: failed to open database: %v", err)
	}

	svc := service.New(
		db.IdentityStore(),
		db.TokenStore(),
		opts.AccessTTL,
		opts.RefreshTTL,
		service.PasswordModeTesting,
	)

	srv := &Server{
		Server:  httptest.NewServer(routing.BuildRouter(api.New(svc))),
		service: svc,
	}
	t.Cleanup(func() {
		srv.Close()
		_ = db.Close()
	})
	return srv
}

// APIBase is the server URL with the API prefix.
func (s *Server) APIBase() string {
	return s.URL + api.Prefix
}

// AddUser registers an account.
func (s *Server) AddUser(t testing.TB, handle, password string) {
	t.Helper()
	if err := s.service.Register(handle, password); err != nil {
		t.Fatalf("tasknettest: failed to add user '%s': %v", handle, err)
	}
}

// Login issues a credential pair without going through HTTP.
func (s *Server) Login(t testing.TB, handle, password string) credentials.Pair {
	t.Helper()
	pair, err := s.service.ObtainPair(handle, password)
	if err != nil {
		t.Fatalf("tasknettest: failed to log in '%s': %v", handle, err)
	}
	return credentials.Pair{Access: pair.Access, Refresh: pair.Refresh}
}

// Revoke invalidates a refresh credential, as a logout elsewhere would.
func (s *Server) Revoke(t testing.TB, refresh string) {
	t.Helper()
	if err := s.service.Revoke(refresh); err != nil {
		t.Fatalf("tasknettest: failed to revoke: %v", err)
	}
}

// Transport returns an authenticated transport talking to this server.
func (s *Server) Transport(store credentials.Store, opts ...transport.Option) *transport.Transport {
	refresher := transport.NewHTTPRefresher(s.APIBase(), s.Server.Client())
	opts = append([]transport.Option{transport.WithBase(s.Server.Client().Transport)}, opts...)
	return transport.New(store, refresher, opts...)
}

// Client returns an *http.Client using Transport(store).
func (s *Server) Client(store credentials.Store, opts ...transport.Option) *http.Client {
	return s.Transport(store, opts...).Client()
}
