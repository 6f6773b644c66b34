// Package database provides SQLite persistence for the dev server's
// identities and tokens, and a credential table the client can use as its
// credential store.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// one connection, so ":memory:" is one database and writes serialize
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database schema: couldn't enable foreign keys: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	if err := initTable(db, "identity", `
		CREATE TABLE IF NOT EXISTS identity (
			id          INTEGER PRIMARY KEY,
			handle      TEXT UNIQUE NOT NULL,
			secret      BLOB
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "refresh", `
		CREATE TABLE IF NOT EXISTS refresh (
			id          INTEGER PRIMARY KEY,
			owner       INTEGER NOT NULL,
			token       TEXT UNIQUE NOT NULL,
			expiration  INTEGER,
			FOREIGN KEY (owner) REFERENCES identity (id) ON DELETE CASCADE
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "access", `
		CREATE TABLE IF NOT EXISTS access (
			id          INTEGER PRIMARY KEY,
			owner       INTEGER NOT NULL,
			token       TEXT UNIQUE NOT NULL,
			expiration  INTEGER,
			FOREIGN KEY (owner) REFERENCES identity (id) ON DELETE CASCADE
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "credential", `
		CREATE TABLE IF NOT EXISTS credential (
			key         TEXT PRIMARY KEY,
			value       TEXT NOT NULL
		);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}
