package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bloghut/backend/internal/models"
)

type reactionRepository struct {
	db *sql.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *sql.DB) *reactionRepository {
	return &reactionRepository{db: db}
}

// toggleAttempts bounds the retries of a toggle chosen as a deadlock victim
const toggleAttempts = 3

// Toggle sets the user's reaction on a post. Repeating the current type removes it.
// The row is inserted before it is locked, so a concurrent toggle for the same
// (user, post) pair always waits on a real row lock and the last one wins.
// A toggle rolled back by a deadlock is retried.
// Returns the user's reaction after the toggle, nil when removed.
func (r *reactionRepository) Toggle(ctx context.Context, userID, blogID int, reactionType models.ReactionType) (*models.ReactionType, error) {
	var (
		result *models.ReactionType
		err    error
	)
	for attempt := 1; attempt <= toggleAttempts; attempt++ {
		result, err = r.toggle(ctx, userID, blogID, reactionType)
		if mysqlErrorNumber(err) != mysqlErrLockDeadlock || inTx(ctx) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *reactionRepository) toggle(ctx context.Context, userID, blogID int, reactionType models.ReactionType) (*models.ReactionType, error) {
	var result *models.ReactionType

	err := NewTransactor(r.db).WithTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.db)

		// An existing row is left untouched and reports no affected rows
		res, err := q.ExecContext(ctx, `
			INSERT INTO reactions (user_id, blog_id, type)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE type = type
		`, userID, blogID, reactionType)
		if err != nil {
			if mysqlErrorNumber(err) == mysqlErrNoReferencedRow {
				return fmt.Errorf("post %w", models.ErrNotFound)
			}
			return fmt.Errorf("failed to insert reaction: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if inserted == 1 {
			result = &reactionType
			return nil
		}

		var current models.ReactionType
		err = q.QueryRowContext(ctx,
			`SELECT type FROM reactions WHERE user_id = ? AND blog_id = ? FOR UPDATE`,
			userID, blogID,
		).Scan(&current)
		if err != nil {
			return fmt.Errorf("failed to get current reaction: %w", err)
		}

		if current == reactionType {
			if _, err := q.ExecContext(ctx, `DELETE FROM reactions WHERE user_id = ? AND blog_id = ?`, userID, blogID); err != nil {
				return fmt.Errorf("failed to delete reaction: %w", err)
			}
			result = nil
			return nil
		}

		if _, err := q.ExecContext(ctx, `UPDATE reactions SET type = ? WHERE user_id = ? AND blog_id = ?`, reactionType, userID, blogID); err != nil {
			return fmt.Errorf("failed to update reaction: %w", err)
		}
		result = &reactionType
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetCounts returns the like and dislike counts of a post
func (r *reactionRepository) GetCounts(ctx context.Context, blogID int) (*models.ReactionCounts, error) {
	query := `
		SELECT COALESCE(SUM(type = 'like'), 0), COALESCE(SUM(type = 'dislike'), 0)
		FROM reactions
		WHERE blog_id = ?
	`

	counts := &models.ReactionCounts{}
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, blogID).Scan(&counts.Likes, &counts.Dislikes); err != nil {
		return nil, fmt.Errorf("failed to get reaction counts: %w", err)
	}
	return counts, nil
}

// GetUserReaction returns the user's reaction on a post, nil when there is none
func (r *reactionRepository) GetUserReaction(ctx context.Context, userID, blogID int) (*models.ReactionType, error) {
	query := `SELECT type FROM reactions WHERE user_id = ? AND blog_id = ? LIMIT 1`

	var reactionType models.ReactionType
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, blogID).Scan(&reactionType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user reaction: %w", err)
	}

	return &reactionType, nil
}

// DeleteByPost deletes every reaction of a post and returns how many were removed
func (r *reactionRepository) DeleteByPost(ctx context.Context, blogID int) (int, error) {
	query := `DELETE FROM reactions WHERE blog_id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, blogID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete post reactions: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}
