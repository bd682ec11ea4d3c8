package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserStore is the identity collaborator consulted at login and refresh.
type UserStore interface {
	VerifyCredentials(ctx context.Context, username, password string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	// IsEnabled is false for unknown users.
	IsEnabled(ctx context.Context, id int64) (bool, error)
}

// SQLUserStore reads accounts from the users table.
type SQLUserStore struct {
	db *sql.DB
}

// NewSQLUserStore creates a user store.
func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

const userColumns = "id, username, password_hash, nickname, email, status, created_at, updated_at"

func scanUser(scanner interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	var nickname, email sql.NullString
	err := scanner.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &nickname, &email,
		&u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Nickname = nickname.String
	u.Email = email.String
	return &u, nil
}

// VerifyCredentials returns the user when password matches. Unknown users
// and wrong passwords both yield ErrAuthenticationFailed. Disabled users
// yield ErrAccountDisabled, but only after the password matched.
func (s *SQLUserStore) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if errors.Is(err, sql.ErrNoRows) {
		burnCompare(password)
		return nil, ErrAuthenticationFailed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !VerifyPassword(u.PasswordHash, password) {
		return nil, ErrAuthenticationFailed
	}
	if !u.Enabled() {
		return nil, ErrAccountDisabled
	}
	return u, nil
}

// GetUser returns a user by id.
func (s *SQLUserStore) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func (s *SQLUserStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// IsEnabled reports whether the user exists and may sign in.
func (s *SQLUserStore) IsEnabled(ctx context.Context, id int64) (bool, error) {
	u, err := s.GetUser(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Enabled(), nil
}

// CreateUser stores a new account with a bcrypt hash of password.
func (s *SQLUserStore) CreateUser(ctx context.Context, u *User, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash

	now := time.Now().UTC()
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, nickname, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, u.Username, u.PasswordHash, u.Nickname, u.Email, u.Status, now, now,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}
