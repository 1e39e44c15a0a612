package storage

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// dsnOptions apply to every pooled connection: foreign keys on, wait on
// locks instead of failing with SQLITE_BUSY, and take the write lock at
// BEGIN so read-then-write transactions cannot interleave.
const dsnOptions = "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	dsn := "file:" + path
	if strings.Contains(path, "?") {
		dsn += "&" + dsnOptions
	} else {
		dsn += "?" + dsnOptions
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			text TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS pending_updates (
			id TEXT PRIMARY KEY,
			unmatched_columns TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			canonical_path TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_updates_created_at ON pending_updates (created_at);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
