package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bloghut/backend/internal/models"
)

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB) *categoryRepository {
	return &categoryRepository{db: db}
}

// Create inserts a new category
func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, slug, description)
		VALUES (?, ?, ?)
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, category.Name, category.Slug, category.Description)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("category %w", models.ErrDuplicate)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	category.ID = int(id)
	return nil
}

const categorySelect = `
	SELECT c.id, c.name, c.slug, c.description, c.created_at,
		(SELECT COUNT(*) FROM blogPost p WHERE p.category_id = c.id) AS post_count
	FROM categories c
`

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	category := &models.Category{}
	var description sql.NullString
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&description,
		&category.CreatedAt,
		&category.PostCount,
	)
	if err != nil {
		return nil, err
	}
	category.Description = description.String
	return category, nil
}

// GetByID retrieves a category by ID
func (r *categoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	query := categorySelect + ` WHERE c.id = ? LIMIT 1`

	category, err := scanCategory(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by ID: %w", err)
	}

	return category, nil
}

// GetBySlug retrieves a category by slug
func (r *categoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	query := categorySelect + ` WHERE c.slug = ? LIMIT 1`

	category, err := scanCategory(conn(ctx, r.db).QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}

	return category, nil
}

// GetAll retrieves all categories ordered by name, with post counts
func (r *categoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	query := categorySelect + ` ORDER BY c.name`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return categories, nil
}

// ExistsBySlug checks if a category other than exceptID uses the slug
func (r *categoryRepository) ExistsBySlug(ctx context.Context, slug string, exceptID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = ? AND id <> ?)`

	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx, query, slug, exceptID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}

	return exists, nil
}

// Update updates name, slug and description of a category
func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = ?, slug = ?, description = ?
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, category.Name, category.Slug, category.Description, category.ID)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("category %w", models.ErrDuplicate)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	return nil
}

// Delete deletes a category by ID. The foreign key refuses the delete while posts reference it.
func (r *categoryRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM categories WHERE id = ?`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		if mysqlErrorNumber(err) == mysqlErrRowIsReferenced {
			return models.ErrCategoryHasPosts
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}

	return requireAffected(result, "category")
}

// CountPosts returns the number of posts in a category
func (r *categoryRepository) CountPosts(ctx context.Context, id int) (int, error) {
	query := `SELECT COUNT(*) FROM blogPost WHERE category_id = ?`

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count category posts: %w", err)
	}
	return total, nil
}
