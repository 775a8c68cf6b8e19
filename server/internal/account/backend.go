package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

// Backend stores raw account records keyed by username.
type Backend interface {
	// Load returns ErrNotFound when no record exists.
	Load(ctx context.Context, username string) ([]byte, error)
	Save(ctx context.Context, username string, data []byte) error
	Close() error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeUsername maps a username onto a filesystem- and key-safe name.
func SanitizeUsername(username string) string {
	return unsafeChars.ReplaceAllString(username, "_")
}

// FileBackend keeps one JSON file per account under a directory.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create account dir %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(username string) string {
	return filepath.Join(b.dir, SanitizeUsername(username)+".json")
}

func (b *FileBackend) Load(_ context.Context, username string) ([]byte, error) {
	data, err := os.ReadFile(b.path(username))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", username, err)
	}
	return data, nil
}

// Save writes through a temp file and rename so a crash never leaves a torn record.
func (b *FileBackend) Save(_ context.Context, username string, data []byte) error {
	target := b.path(username)
	tmp, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("save account %s: %w", username, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save account %s: %w", username, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save account %s: %w", username, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save account %s: %w", username, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }

const createAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
	username   TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresBackend keeps account records in a single JSONB table.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend connects, pings and ensures the accounts table exists.
func NewPostgresBackend(ctx context.Context, url string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, createAccountsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create accounts table: %w", err)
	}
	utils.LogInfof("PostgreSQL account backend ready.")
	return &PostgresBackend{db: db}, nil
}

func (b *PostgresBackend) Load(ctx context.Context, username string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT data FROM accounts WHERE username = $1`, SanitizeUsername(username)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db load %s: %w", username, err)
	}
	return data, nil
}

func (b *PostgresBackend) Save(ctx context.Context, username string, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO accounts (username, data) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		SanitizeUsername(username), data)
	if err != nil {
		return fmt.Errorf("db save %s: %w", username, err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
