// Package sqlite implements goIdentity.UserDirectory over an embedded SQLite
// database using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	full_name     TEXT NOT NULL DEFAULT '',
	avatar        TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'USER',
	auth_provider TEXT NOT NULL DEFAULT 'NONE',
	active        INTEGER NOT NULL DEFAULT 1,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);`

const selectColumns = `id, email, password_hash, full_name, avatar, phone, address, role, auth_provider, active, created_at, updated_at`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store is a SQLite-backed user directory.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" yields a private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*goIdentity.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM users WHERE email = ?`, email)

	var (
		u                  goIdentity.User
		role, provider     string
		active             int
		createdAt, updated int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Avatar, &u.Phone, &u.Address,
		&role, &provider, &active, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goIdentity.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Role = goIdentity.Role(role)
	u.Provider = goIdentity.AuthProvider(provider)
	u.Active = active != 0
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return false, fmt.Errorf("exists user: %w", err)
	}
	return n > 0, nil
}

// Save inserts users without an ID and updates the row otherwise.
func (s *Store) Save(ctx context.Context, user *goIdentity.User) (*goIdentity.User, error) {
	u := *user
	now := s.now().UTC()
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (`+selectColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Email, u.PasswordHash, u.FullName, u.Avatar, u.Phone, u.Address,
			string(u.Role), string(u.Provider), boolToInt(u.Active), toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, goIdentity.ErrEmailExists
			}
			return nil, fmt.Errorf("insert user: %w", err)
		}
		return &u, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, password_hash = ?, full_name = ?, avatar = ?, phone = ?, address = ?,
		    role = ?, auth_provider = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.PasswordHash, u.FullName, u.Avatar, u.Phone, u.Address,
		string(u.Role), string(u.Provider), boolToInt(u.Active), toMillis(u.UpdatedAt), u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goIdentity.ErrEmailExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update user %s: %w", u.ID, goIdentity.ErrUserNotFound)
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
