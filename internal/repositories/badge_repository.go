package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bloghut/backend/internal/models"
)

type badgeRepository struct {
	db *sql.DB
}

// NewBadgeRepository creates a new badge repository
func NewBadgeRepository(db *sql.DB) *badgeRepository {
	return &badgeRepository{db: db}
}

// GetByName retrieves a badge of the catalog by name
func (r *badgeRepository) GetByName(ctx context.Context, name string) (*models.Badge, error) {
	query := `SELECT id, name, description, icon FROM badges WHERE name = ? LIMIT 1`

	badge := &models.Badge{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, name).Scan(&badge.ID, &badge.Name, &badge.Description, &badge.Icon)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("badge %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get badge by name: %w", err)
	}

	return badge, nil
}

// Award grants a badge to a user. Awarding an already earned badge is a no-op.
// Returns true when a new row was inserted.
func (r *badgeRepository) Award(ctx context.Context, userID, badgeID int) (bool, error) {
	query := `INSERT IGNORE INTO user_badges (user_id, badge_id) VALUES (?, ?)`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, userID, badgeID)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ListByUser retrieves the badges earned by a user, oldest first
func (r *badgeRepository) ListByUser(ctx context.Context, userID int) ([]models.UserBadge, error) {
	query := `
		SELECT b.id, b.name, b.description, b.icon, ub.earned_at
		FROM user_badges ub
		JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = ?
		ORDER BY ub.earned_at, b.id
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user badges: %w", err)
	}
	defer rows.Close()

	badges := []models.UserBadge{}
	for rows.Next() {
		var badge models.UserBadge
		if err := rows.Scan(&badge.ID, &badge.Name, &badge.Description, &badge.Icon, &badge.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		badges = append(badges, badge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return badges, nil
}
