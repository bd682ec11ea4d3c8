package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultRefreshTTL is the absolute lifetime of a refresh token.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// RefreshToken is a persisted refresh credential.
type RefreshToken struct {
	ID        string
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RefreshStore persists refresh tokens.
type RefreshStore interface {
	Insert(ctx context.Context, rt *RefreshToken) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	MarkRevoked(ctx context.Context, token string, at time.Time) (bool, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RefreshTokens implements the single-active-session refresh policy on top
// of a RefreshStore.
type RefreshTokens struct {
	store RefreshStore
	ttl   time.Duration
	now   func() time.Time
}

// NewRefreshTokens creates the refresh token manager. A non-positive ttl
// uses DefaultRefreshTTL; a nil clock uses time.Now.
func NewRefreshTokens(store RefreshStore, ttl time.Duration, now func() time.Time) *RefreshTokens {
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RefreshTokens{store: store, ttl: ttl, now: now}
}

// Create drops every refresh token of the user, then stores a new one.
func (r *RefreshTokens) Create(ctx context.Context, userID int64) (*RefreshToken, error) {
	if _, err := r.store.DeleteByUser(ctx, userID); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	rt := &RefreshToken{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Insert(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// Validate returns the stored token if it exists, is not revoked and has
// not reached its expiry. A token whose expiry equals now is expired.
func (r *RefreshTokens) Validate(ctx context.Context, token string) (*RefreshToken, error) {
	if token == "" {
		return nil, ErrRefreshTokenNotFound
	}

	rt, err := r.store.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if rt.Revoked {
		return nil, ErrRefreshTokenRevoked
	}
	if !r.now().Before(rt.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}
	return rt, nil
}

// Revoke flags a refresh token as revoked.
func (r *RefreshTokens) Revoke(ctx context.Context, token string) error {
	ok, err := r.store.MarkRevoked(ctx, token, r.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// RevokeAll deletes every refresh token of the user.
func (r *RefreshTokens) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	return r.store.DeleteByUser(ctx, userID)
}

// Rotate replaces a validated token with a fresh one for the same user.
func (r *RefreshTokens) Rotate(ctx context.Context, old *RefreshToken) (*RefreshToken, error) {
	if err := r.store.DeleteByToken(ctx, old.Token); err != nil {
		return nil, err
	}
	return r.Create(ctx, old.UserID)
}

// SweepExpired deletes every token past its expiry.
func (r *RefreshTokens) SweepExpired(ctx context.Context) (int64, error) {
	return r.store.DeleteExpired(ctx, r.now().UTC())
}

// SQLRefreshStore keeps refresh tokens in the refresh_tokens table.
type SQLRefreshStore struct {
	db *sql.DB
}

// NewSQLRefreshStore creates a refresh token store.
func NewSQLRefreshStore(db *sql.DB) *SQLRefreshStore {
	return &SQLRefreshStore{db: db}
}

// Insert implements RefreshStore.
func (s *SQLRefreshStore) Insert(ctx context.Context, rt *RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at, revoked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rt.ID, rt.UserID, rt.Token, rt.ExpiresAt, rt.Revoked, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// FindByToken implements RefreshStore.
func (s *SQLRefreshStore) FindByToken(ctx context.Context, token string) (*RefreshToken, error) {
	var rt RefreshToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, revoked, created_at, updated_at
		FROM refresh_tokens
		WHERE token = $1
	`, token).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return &rt, nil
}

// MarkRevoked implements RefreshStore.
func (s *SQLRefreshStore) MarkRevoked(ctx context.Context, token string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked = $1, updated_at = $2 WHERE token = $3",
		true, at, token)
	if err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// DeleteByToken implements RefreshStore.
func (s *SQLRefreshStore) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token = $1", token); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// DeleteByUser implements RefreshStore.
func (s *SQLRefreshStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id = $1", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired implements RefreshStore.
func (s *SQLRefreshStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep refresh tokens: %w", err)
	}
	return result.RowsAffected()
}
