package service

import "time"

// IdentityStore persists account handles and password hashes. GetSecret
// wraps sql.ErrNoRows for unknown handles.
type IdentityStore interface {
	InsertIdentity(handle string, secret []byte) error
	GetSecret(handle string) ([]byte, error)
}

// TokenStore persists issued tokens by kind. GetTokenOwner wraps
// sql.ErrNoRows for unknown tokens.
type TokenStore interface {
	InsertToken(kind TokenKind, handle string, token string, expiration time.Time) error
	GetTokenOwner(kind TokenKind, token string) (string, time.Time, error)
	DeleteToken(kind TokenKind, token string) (bool, error)
	DeleteExpiredTokens(kind TokenKind, now time.Time) (int64, error)
}
