// Package credentials persists the access and refresh credentials used by the
// authenticated transport.
//
// A Store is a plain string key-value store. The credential pair lives under
// two well-known keys, AccessKey and RefreshKey, either of which may be
// absent. Absence of the access credential means requests go out
// unauthenticated; absence of the refresh credential means a 401 cannot be
// recovered from.
//
// Implementations:
//
//   - MemoryStore keeps values in process memory.
//   - FileStore keeps values in a JSON file and can watch it for changes made
//     by other processes.
//   - internal/database.SQLiteStore exposes a SQLite backed Store.
//
// Implementations must never log credential values.
package credentials

import (
	"errors"
	"fmt"
)

const (
	AccessKey  = "token"
	RefreshKey = "refresh_token"
)

var (
	ErrStoreRead  = errors.New("credential store read failed")
	ErrStoreWrite = errors.New("credential store write failed")
)

// Store is a persistent key-value store for credentials.
type Store interface {
	// Get returns the value under key and whether it was present. A store
	// that cannot be read reports the key as absent.
	Get(key string) (string, bool)
	Set(key string, value string) error
	Remove(key string) error
}

// Pair is the access/refresh credential pair. An empty field means the
// credential is absent.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (p Pair) LoggedIn() bool {
	return p.Access != "" || p.Refresh != ""
}

// Load reads both credentials from s.
func Load(s Store) Pair {
	access, _ := s.Get(AccessKey)
	refresh, _ := s.Get(RefreshKey)
	return Pair{Access: access, Refresh: refresh}
}

// Save writes both credentials to s. An empty field removes that key.
func Save(s Store, p Pair) error {
	if err := put(s, AccessKey, p.Access); err != nil {
		return err
	}
	return put(s, RefreshKey, p.Refresh)
}

// Clear removes both credentials from s. Both removals are attempted even if
// the first fails.
func Clear(s Store) error {
	errAccess := s.Remove(AccessKey)
	errRefresh := s.Remove(RefreshKey)
	return errors.Join(errAccess, errRefresh)
}

func put(s Store, key string, value string) error {
	if value == "" {
		if err := s.Remove(key); err != nil {
			return fmt.Errorf("couldn't remove '%s': %w", key, err)
		}
		return nil
	}
	if err := s.Set(key, value); err != nil {
		return fmt.Errorf("couldn't set '%s': %w", key, err)
	}
	return nil
}
