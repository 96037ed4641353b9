package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// postRepository implements PostRepository
type postRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *sql.DB, logger *zap.Logger) *postRepository {
	return &postRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new post
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO blogPost (user_id, title, content, summary, category_id, featured_image, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		post.UserID,
		post.Title,
		post.Content,
		post.Summary,
		post.CategoryID,
		post.FeaturedImage,
		post.Status,
	)
	if err != nil {
		if mysqlErrorNumber(err) == mysqlErrNoReferencedRow {
			return fmt.Errorf("category %w", models.ErrNotFound)
		}
		r.logger.Error("failed to create post", zap.Error(err))
		return fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	post.ID = int(id)
	return nil
}

// GetByID retrieves a post with its author and category
func (r *postRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	query := `
		SELECT p.id, p.user_id, p.title, p.content, p.summary, p.category_id, p.featured_image,
			p.status, p.views, p.created_at, p.updated_at,
			u.username, u.profile_image, COALESCE(c.name, ''), COALESCE(c.slug, '')
		FROM blogPost p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?
		LIMIT 1
	`

	post := &models.Post{}
	var categoryID sql.NullInt64
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&post.ID,
		&post.UserID,
		&post.Title,
		&post.Content,
		&post.Summary,
		&categoryID,
		&post.FeaturedImage,
		&post.Status,
		&post.Views,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.AuthorUsername,
		&post.AuthorImage,
		&post.CategoryName,
		&post.CategorySlug,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get post by id", zap.Error(err), zap.Int("id", id))
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}

	if categoryID.Valid {
		cid := int(categoryID.Int64)
		post.CategoryID = &cid
	}

	return post, nil
}

// Update overwrites the mutable fields of a post. Last writer wins.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE blogPost
		SET title = ?, content = ?, summary = ?, category_id = ?, featured_image = ?, status = ?
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		post.Title,
		post.Content,
		post.Summary,
		post.CategoryID,
		post.FeaturedImage,
		post.Status,
		post.ID,
	)
	if err != nil {
		if mysqlErrorNumber(err) == mysqlErrNoReferencedRow {
			return fmt.Errorf("category %w", models.ErrNotFound)
		}
		r.logger.Error("failed to update post", zap.Error(err), zap.Int("id", post.ID))
		return fmt.Errorf("failed to update post: %w", err)
	}

	return nil
}

// UpdateStatus changes the status of a post
func (r *postRepository) UpdateStatus(ctx context.Context, id int, status models.PostStatus) error {
	query := `UPDATE blogPost SET status = ? WHERE id = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update post status: %w", err)
	}

	return nil
}

// Delete deletes a post by ID
func (r *postRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM blogPost WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to delete post", zap.Error(err), zap.Int("id", id))
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return requireAffected(result, "post")
}

// IncrementViews adds one to the views counter
func (r *postRepository) IncrementViews(ctx context.Context, id int) error {
	query := `UPDATE blogPost SET views = views + 1 WHERE id = ?`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}

	return nil
}

// postFilter builds the WHERE clause shared by List and Count
func postFilter(filter models.PostFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "p.status = ?")
		args = append(args, filter.Status)
	}
	if filter.CategoryID > 0 {
		conditions = append(conditions, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.UserID > 0 {
		conditions = append(conditions, "p.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(p.title LIKE ? OR p.summary LIKE ? OR p.content LIKE ?)")
		pattern := containsPattern(filter.Search)
		args = append(args, pattern, pattern, pattern)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List retrieves a page of posts. With a search term, title matches rank above
// summary matches, which rank above content-only matches; ties are newest first.
func (r *postRepository) List(ctx context.Context, filter models.PostFilter) ([]models.PostListItem, error) {
	whereClause, args := postFilter(filter)

	orderBy := "p.created_at DESC, p.id DESC"
	if filter.Search != "" {
		orderBy = "CASE WHEN p.title LIKE ? THEN 0 WHEN p.summary LIKE ? THEN 1 ELSE 2 END, " + orderBy
		pattern := containsPattern(filter.Search)
		args = append(args, pattern, pattern)
	}

	page := max(filter.Page, 1)
	count := filter.Count
	if count <= 0 {
		count = models.PostsPerPage
	}
	args = append(args, count, (page-1)*count)

	query := fmt.Sprintf(`
		SELECT p.id, p.user_id, p.title, p.summary, p.featured_image, p.status, p.views, p.created_at,
			u.username, COALESCE(c.name, ''), COALESCE(c.slug, ''),
			(SELECT COUNT(*) FROM comments cm WHERE cm.blog_id = p.id) AS comment_count,
			(SELECT COUNT(*) FROM reactions rc WHERE rc.blog_id = p.id AND rc.type = 'like') AS likes
		FROM blogPost p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN categories c ON c.id = p.category_id
		%s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, whereClause, orderBy)

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query posts", zap.Error(err))
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.PostListItem{}
	for rows.Next() {
		var post models.PostListItem
		err := rows.Scan(
			&post.ID,
			&post.UserID,
			&post.Title,
			&post.Summary,
			&post.FeaturedImage,
			&post.Status,
			&post.Views,
			&post.CreatedAt,
			&post.AuthorUsername,
			&post.CategoryName,
			&post.CategorySlug,
			&post.CommentCount,
			&post.Likes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return posts, nil
}

// Count returns the number of posts matching the filter
func (r *postRepository) Count(ctx context.Context, filter models.PostFilter) (int, error) {
	whereClause, args := postFilter(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM blogPost p %s`, whereClause)

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return total, nil
}

// CountByUser returns the number of posts a user has written, drafts included
func (r *postRepository) CountByUser(ctx context.Context, userID int) (int, error) {
	query := `SELECT COUNT(*) FROM blogPost WHERE user_id = ?`

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count posts by user: %w", err)
	}
	return total, nil
}

// ImagesByUser returns the non-empty featured image filenames of a user's posts
func (r *postRepository) ImagesByUser(ctx context.Context, userID int) ([]string, error) {
	query := `SELECT featured_image FROM blogPost WHERE user_id = ? AND featured_image <> ''`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query post images: %w", err)
	}
	defer rows.Close()

	var images []string
	for rows.Next() {
		var image string
		if err := rows.Scan(&image); err != nil {
			return nil, fmt.Errorf("failed to scan post image: %w", err)
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return images, nil
}
