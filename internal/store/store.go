package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store wraps access to the Postgres database through a shared *sql.DB.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// hashAPIKey hashes a raw API key string using SHA-256 and returns a hex string.
func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
