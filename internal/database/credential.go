package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
)

// CredentialStore exposes the credential table as a credentials.Store.
func (s *SQLiteStore) CredentialStore() credentials.Store {
	return credentialStore{db: s.db}
}

type credentialStore struct {
	db *sql.DB
}

func (c credentialStore) Get(key string) (string, bool) {
	row := c.db.QueryRow(`
		SELECT value
		FROM credential
		WHERE key=?1;`,
		key,
	)

	var value string
	if err := row.Scan(&value); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("credentials: couldn't read '%s': %v", key, err)
		}
		return "", false
	}
	return value, true
}

func (c credentialStore) Set(key string, value string) error {
	_, err := c.db.Exec(`
		INSERT INTO credential (key, value)
		VALUES (?1, ?2)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
		key,
		value,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", credentials.ErrStoreWrite, err)
	}
	return nil
}

func (c credentialStore) Remove(key string) error {
	_, err := c.db.Exec(`
		DELETE FROM credential
		WHERE key=?1;`,
		key,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", credentials.ErrStoreWrite, err)
	}
	return nil
}
