package database

import (
	"database/sql"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/tasknet/internal/service"
)

func (s *SQLiteStore) TokenStore() service.TokenStore {
	return s
}

// table names are fixed by TokenKind, never taken from input
func tokenTable(kind service.TokenKind) (string, error) {
	switch kind {
	case service.TokenAccess:
		return "access", nil
	case service.TokenRefresh:
		return "refresh", nil
	default:
		return "", fmt.Errorf("unknown token kind %d", kind)
	}
}

func (s *SQLiteStore) InsertToken(
	kind service.TokenKind,
	handle string,
	token string,
	expiration time.Time,
) error {
	table, err := tokenTable(kind)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO %s (owner, token, expiration)
		SELECT i.id, ?1, ?2
		FROM identity i
		WHERE i.handle=?3;`, table),
		token,
		expiration.UnixMilli(),
		handle,
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into %s: %v", table, err)
	}
	if resultsEmpty(result) {
		return fmt.Errorf("couldn't insert into %s: %w", table, sql.ErrNoRows)
	}
	return nil
}

// GetTokenOwner returns sql.ErrNoRows (wrapped) for unknown tokens.
func (s *SQLiteStore) GetTokenOwner(
	kind service.TokenKind,
	token string,
) (
	string,
	time.Time,
	error,
) {
	table, err := tokenTable(kind)
	if err != nil {
		return "", time.Time{}, err
	}
	row := s.db.QueryRow(fmt.Sprintf(`
		SELECT i.handle, t.expiration
		FROM %s t
		JOIN identity i ON t.owner = i.id
		WHERE t.token=?1;`, table),
		token,
	)

	var handle string
	var expiration int64
	if err := row.Scan(&handle, &expiration); err != nil {
		return "", time.Time{}, fmt.Errorf("couldn't scan %s owner: %w", table, err)
	}
	return handle, time.UnixMilli(expiration), nil
}

func (s *SQLiteStore) DeleteToken(
	kind service.TokenKind,
	token string,
) (
	bool,
	error,
) {
	table, err := tokenTable(kind)
	if err != nil {
		return false, err
	}
	result, err := s.db.Exec(fmt.Sprintf(`
		DELETE FROM %s
		WHERE token=?1;`, table),
		token,
	)
	if err != nil {
		return false, fmt.Errorf("couldn't delete from %s: %v", table, err)
	}

	deleted := !resultsEmpty(result)
	return deleted, nil
}

// DeleteExpiredTokens removes every token of kind that expired before now.
func (s *SQLiteStore) DeleteExpiredTokens(
	kind service.TokenKind,
	now time.Time,
) (
	int64,
	error,
) {
	table, err := tokenTable(kind)
	if err != nil {
		return 0, err
	}
	result, err := s.db.Exec(fmt.Sprintf(`
		DELETE FROM %s
		WHERE expiration<=?1;`, table),
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("couldn't delete expired from %s: %v", table, err)
	}
	return result.RowsAffected()
}
