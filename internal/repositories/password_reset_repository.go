package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bloghut/backend/internal/models"
)

type passwordResetRepository struct {
	db *sql.DB
}

// NewPasswordResetRepository creates a new password reset repository
func NewPasswordResetRepository(db *sql.DB) *passwordResetRepository {
	return &passwordResetRepository{db: db}
}

// Create inserts a new password reset token
func (r *passwordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	query := `
		INSERT INTO password_resets (user_id, token_hash, expires_at)
		VALUES (?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, reset.UserID, reset.TokenHash, reset.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create password reset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	reset.ID = int(id)
	return nil
}

// GetValid retrieves an unused, unexpired reset by token hash
func (r *passwordResetRepository) GetValid(ctx context.Context, tokenHash string, now time.Time) (*models.PasswordReset, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at
		FROM password_resets
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?
		LIMIT 1
	`

	reset := &models.PasswordReset{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, tokenHash, now).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.TokenHash,
		&reset.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reset token %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}

	return reset, nil
}

// MarkUsed marks a reset token as consumed
func (r *passwordResetRepository) MarkUsed(ctx context.Context, id int, usedAt time.Time) error {
	query := `UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, usedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark password reset used: %w", err)
	}

	return requireAffected(result, "reset token")
}

// DeleteByUser deletes every pending reset of a user
func (r *passwordResetRepository) DeleteByUser(ctx context.Context, userID int) error {
	query := `DELETE FROM password_resets WHERE user_id = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user password resets: %w", err)
	}

	return nil
}

// DeleteExpired deletes resets that expired at or before now, or were used
func (r *passwordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM password_resets WHERE expires_at <= ? OR used_at IS NOT NULL`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired password resets: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
