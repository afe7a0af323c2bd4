package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/dajeum/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Meta keys.
const (
	metaGenesis       = "genesis"
	metaGenesisHash   = "genesis_hash"
	metaLogVersion    = "log_version"
	metaEngineVersion = "engine_version"
)

// ErrNoGenesis is returned when the log has not been initialized.
var ErrNoGenesis = errors.New("store: log has no genesis")

// GenesisMismatchError is returned when a log is opened with a genesis
// different from the one it was created with.
type GenesisMismatchError struct {
	Stored string
	Given  string
}

func (e *GenesisMismatchError) Error() string {
	return fmt.Sprintf("store: genesis mismatch: log was created with %s, given %s", e.Stored, e.Given)
}

// Store provides durable storage for the operation log.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InitGenesis records the genesis document of a new log, or checks that an
// existing log was created with the same genesis. Returns the genesis hash.
func (s *Store) InitGenesis(ctx context.Context, genesis ir.Object) (string, error) {
	hash, err := ir.GenesisHash(genesis)
	if err != nil {
		return "", fmt.Errorf("init genesis: %w", err)
	}

	stored, err := s.meta(ctx, metaGenesisHash)
	switch {
	case err == nil:
		if stored != hash {
			return "", &GenesisMismatchError{Stored: stored, Given: hash}
		}
		return hash, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("init genesis: %w", err)
	}

	data, err := ir.MarshalCanonical(genesis)
	if err != nil {
		return "", fmt.Errorf("init genesis: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("init genesis: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, kv := range [][2]string{
		{metaGenesis, string(data)},
		{metaGenesisHash, hash},
		{metaLogVersion, ir.LogVersion},
		{metaEngineVersion, ir.EngineVersion},
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return "", fmt.Errorf("init genesis: insert %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("init genesis: commit: %w", err)
	}
	return hash, nil
}

// Genesis returns the canonical genesis JSON and its hash.
// Returns ErrNoGenesis if the log was never initialized.
func (s *Store) Genesis(ctx context.Context) ([]byte, string, error) {
	data, err := s.meta(ctx, metaGenesis)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNoGenesis
	}
	if err != nil {
		return nil, "", fmt.Errorf("read genesis: %w", err)
	}
	hash, err := s.meta(ctx, metaGenesisHash)
	if err != nil {
		return nil, "", fmt.Errorf("read genesis hash: %w", err)
	}
	return []byte(data), hash, nil
}

func (s *Store) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	return value, err
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
