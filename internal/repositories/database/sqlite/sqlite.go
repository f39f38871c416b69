// Package sqlite provides a SQLite-backed implementation of the ledger repositories.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
)

// Every connection enforces foreign keys and waits on locks instead of failing.
// Read-write transactions start with BEGIN IMMEDIATE so writers serialize
// before their first read; read-only transactions start deferred.
const dsnOptions = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"

// Open opens the database at dbPath, creating parent directories and the schema as needed.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// NewRepositoryProvider wires the SQLite repositories onto db.
func NewRepositoryProvider(db *sql.DB) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerRepo:     newLedgerRepository(db),
		MembershipRepo: newMembershipRepository(db),
	}
}
