package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/nzoschke/studyvault/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	ActiveByToken(ctx context.Context, token string) (*model.Session, error)
	Revoke(ctx context.Context, token string) error
	CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// ActiveByToken returns the session only if it is neither revoked nor expired
func (r *sessionRepository) ActiveByToken(ctx context.Context, token string) (*model.Session, error) {
	var s model.Session
	query := `
		SELECT * FROM sessions
		WHERE token = $1
		AND revoked_at IS NULL
		AND expires_at > $2
	`

	err := r.db.GetContext(ctx, &s, query, token, time.Now().UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

// Revoke marks an active session as revoked. Revoking twice reports ErrSessionNotFound.
func (r *sessionRepository) Revoke(ctx context.Context, token string) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE token = $2 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), token)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return expectOneRow(result, ErrSessionNotFound)
}

// CleanupExpired removes revoked and expired sessions older than the given duration.
func (r *sessionRepository) CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	query := `
		DELETE FROM sessions
		WHERE (revoked_at IS NOT NULL AND revoked_at < $1)
		   OR (expires_at < $1)
	`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
