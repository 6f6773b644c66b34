package database

import (
	"fmt"

	"git.sr.ht/~jakintosh/tasknet/internal/service"
)

func (s *SQLiteStore) IdentityStore() service.IdentityStore {
	return s
}

func (s *SQLiteStore) InsertIdentity(
	handle string,
	secret []byte,
) error {
	_, err := s.db.Exec(`
		INSERT INTO identity (handle, secret)
		VALUES (?1, ?2);`,
		handle,
		secret,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into identity: %v", err)
	}
	return nil
}

// GetSecret returns sql.ErrNoRows (wrapped) for unknown handles.
func (s *SQLiteStore) GetSecret(
	handle string,
) (
	[]byte,
	error,
) {
	row := s.db.QueryRow(`
		SELECT secret
		FROM identity i
		WHERE i.handle=?1;`,
		handle,
	)

	var secret []byte
	if err := row.Scan(&secret); err != nil {
		return nil, fmt.Errorf("couldn't scan identity secret: %w", err)
	}
	return secret, nil
}
