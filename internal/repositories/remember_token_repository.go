package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bloghut/backend/internal/models"
)

// rememberTokenRepository implements RememberTokenRepository
type rememberTokenRepository struct {
	db *sql.DB
}

// NewRememberTokenRepository creates a new remember-me token repository
func NewRememberTokenRepository(db *sql.DB) *rememberTokenRepository {
	return &rememberTokenRepository{
		db: db,
	}
}

// Create inserts a new remember-me token
func (r *rememberTokenRepository) Create(ctx context.Context, token *models.RememberToken) error {
	query := `
		INSERT INTO remember_tokens (user_id, token_hash, expires_at)
		VALUES (?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create remember token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	token.ID = int(id)
	return nil
}

// GetValid retrieves an unexpired token by its hash
func (r *rememberTokenRepository) GetValid(ctx context.Context, tokenHash string, now time.Time) (*models.RememberToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at
		FROM remember_tokens
		WHERE token_hash = ? AND expires_at > ?
		LIMIT 1
	`

	token := &models.RememberToken{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, tokenHash, now).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get remember token: %w", err)
	}

	return token, nil
}

// DeleteByHash deletes a token by its hash
func (r *rememberTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM remember_tokens WHERE token_hash = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to delete remember token: %w", err)
	}

	return nil
}

// DeleteByUser deletes every token of a user
func (r *rememberTokenRepository) DeleteByUser(ctx context.Context, userID int) error {
	query := `DELETE FROM remember_tokens WHERE user_id = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user remember tokens: %w", err)
	}

	return nil
}

// DeleteExpired deletes all tokens that expired at or before now
func (r *rememberTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM remember_tokens WHERE expires_at <= ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired remember tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
