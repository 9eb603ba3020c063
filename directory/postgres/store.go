// Package postgres implements goIdentity.UserDirectory over PostgreSQL with a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Schema creates the users table. Migrate applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	full_name     TEXT NOT NULL DEFAULT '',
	avatar        TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	address       TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'USER',
	auth_provider TEXT NOT NULL DEFAULT 'NONE',
	active        BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
)`

type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db, now: time.Now}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*goIdentity.User, error) {
	const q = `
		SELECT
			id::text,
			email,
			password_hash,
			full_name,
			avatar,
			phone,
			address,
			role,
			auth_provider,
			active,
			created_at,
			updated_at
		FROM users
		WHERE email = $1
		LIMIT 1
	`

	var (
		u              goIdentity.User
		role, provider string
	)
	err := s.db.QueryRow(ctx, q, email).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.Avatar,
		&u.Phone,
		&u.Address,
		&role,
		&provider,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goIdentity.ErrUserNotFound
		}
		return nil, err
	}
	u.Role = goIdentity.Role(role)
	u.Provider = goIdentity.AuthProvider(provider)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
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
		const q = `
			INSERT INTO users (id, email, password_hash, full_name, avatar, phone, address,
			                   role, auth_provider, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err := s.db.Exec(ctx, q,
			u.ID, u.Email, u.PasswordHash, u.FullName, u.Avatar, u.Phone, u.Address,
			string(u.Role), string(u.Provider), u.Active, u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, goIdentity.ErrEmailExists
			}
			return nil, fmt.Errorf("insert user: %w", err)
		}
		return &u, nil
	}

	const q = `
		UPDATE users
		SET email = $1,
		    password_hash = $2,
		    full_name = $3,
		    avatar = $4,
		    phone = $5,
		    address = $6,
		    role = $7,
		    auth_provider = $8,
		    active = $9,
		    updated_at = $10
		WHERE id = $11
	`
	cmdTag, err := s.db.Exec(ctx, q,
		u.Email, u.PasswordHash, u.FullName, u.Avatar, u.Phone, u.Address,
		string(u.Role), string(u.Provider), u.Active, u.UpdatedAt, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, goIdentity.ErrEmailExists
		}
		return nil, fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, fmt.Errorf("update user %s: %w", u.ID, goIdentity.ErrUserNotFound)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
