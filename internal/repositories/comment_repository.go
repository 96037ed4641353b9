package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bloghut/backend/internal/models"
)

type commentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB) *commentRepository {
	return &commentRepository{db: db}
}

// Create inserts a new comment
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (blog_id, user_id, parent_comment_id, comment)
		VALUES (?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, comment.BlogID, comment.UserID, comment.ParentCommentID, comment.Comment)
	if err != nil {
		if mysqlErrorNumber(err) == mysqlErrNoReferencedRow {
			return fmt.Errorf("post %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	comment.ID = int(id)
	return nil
}

const commentSelect = `
	SELECT c.id, c.blog_id, c.user_id, c.parent_comment_id, c.comment, c.created_at,
		u.username, u.profile_image
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	comment := &models.Comment{}
	var parentID sql.NullInt64
	err := row.Scan(
		&comment.ID,
		&comment.BlogID,
		&comment.UserID,
		&parentID,
		&comment.Comment,
		&comment.CreatedAt,
		&comment.Username,
		&comment.ProfileImage,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		pid := int(parentID.Int64)
		comment.ParentCommentID = &pid
	}
	return comment, nil
}

// GetByID retrieves a comment with its author
func (r *commentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	query := commentSelect + ` WHERE c.id = ? LIMIT 1`

	comment, err := scanComment(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment by ID: %w", err)
	}

	return comment, nil
}

// ListByPost retrieves the comments of a post, newest first.
// A limit of 0 returns every comment from offset on.
func (r *commentRepository) ListByPost(ctx context.Context, postID, offset, limit int) ([]models.Comment, error) {
	query := commentSelect + ` WHERE c.blog_id = ? ORDER BY c.created_at DESC, c.id DESC`
	args := []any{postID}

	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		// MySQL has no OFFSET without LIMIT
		query += ` LIMIT 18446744073709551615 OFFSET ?`
		args = append(args, offset)
	}

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return comments, nil
}

// CountByPost returns the number of comments on a post
func (r *commentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	query := `SELECT COUNT(*) FROM comments WHERE blog_id = ?`

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, postID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return total, nil
}

// Delete deletes a comment by ID
func (r *commentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM comments WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return requireAffected(result, "comment")
}

// DeleteByPost deletes every comment of a post and returns how many were removed
func (r *commentRepository) DeleteByPost(ctx context.Context, postID int) (int, error) {
	query := `DELETE FROM comments WHERE blog_id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete post comments: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// commentSearch builds the WHERE clause shared by GetAll and Count
func commentSearch(search string) (string, []any) {
	if search == "" {
		return "", nil
	}
	pattern := containsPattern(search)
	return "WHERE (c.comment LIKE ? OR u.username LIKE ? OR p.title LIKE ?)", []any{pattern, pattern, pattern}
}

// GetAll retrieves a paginated list of comments for the admin console
func (r *commentRepository) GetAll(ctx context.Context, page, count int, search string) ([]models.CommentListItem, error) {
	whereClause, args := commentSearch(search)
	offset := (page - 1) * count

	query := fmt.Sprintf(`
		SELECT c.id, c.blog_id, p.title, u.username, c.comment, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		JOIN blogPost p ON p.id = c.blog_id
		%s
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	args = append(args, count, offset)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := []models.CommentListItem{}
	for rows.Next() {
		var item models.CommentListItem
		if err := rows.Scan(&item.ID, &item.BlogID, &item.PostTitle, &item.Username, &item.Comment, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return comments, nil
}

// Count returns the number of comments matching the admin search
func (r *commentRepository) Count(ctx context.Context, search string) (int, error) {
	whereClause, args := commentSearch(search)
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM comments c
		JOIN users u ON u.id = c.user_id
		JOIN blogPost p ON p.id = c.blog_id
		%s
	`, whereClause)

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return total, nil
}
