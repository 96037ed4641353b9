package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghut/backend/internal/markup"
	"github.com/bloghut/backend/internal/models"
	"go.uber.org/zap"
)

// CategoryRepository is the interface that wraps methods for Categories table data access
type CategoryRepository interface {
	// Method Create inserts a new category. A taken slug yields an error wrapping models.ErrDuplicate.
	Create(ctx context.Context, category *models.Category) error
	// Method GetByID retrieves a category with its post count.
	//
	// If category with such ID does not exist, a "category not found" error will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.Category, error)
	// Method GetBySlug retrieves a category with its post count.
	//
	// Please reference GetByID method for error values.
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	// Method GetAll retrieves every category ordered by name, each with its post count.
	GetAll(ctx context.Context) ([]models.Category, error)
	// Method ExistsBySlug checks if a category other than "exceptID" uses the slug. Pass 0 to check all categories.
	ExistsBySlug(ctx context.Context, slug string, exceptID int) (bool, error)
	// Method Update overwrites name, slug and description of a category.
	Update(ctx context.Context, category *models.Category) error
	// Method Delete deletes a category.
	//
	// If posts still reference the category, models.ErrCategoryHasPosts will be returned.
	Delete(ctx context.Context, id int) error
	// Method CountPosts returns the number of posts referencing a category.
	CountPosts(ctx context.Context, id int) (int, error)
}

type categoryService struct {
	repo   CategoryRepository
	logger *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(repo CategoryRepository, logger *zap.Logger) *categoryService {
	return &categoryService{
		repo:   repo,
		logger: logger,
	}
}

// List returns every category with its post count
func (s *categoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Get returns a category by ID
func (s *categoryService) Get(ctx context.Context, id int) (*models.Category, error) {
	if id <= 0 {
		return nil, fmt.Errorf("category %w", models.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

// GetBySlug returns a category by slug
func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("category %w", models.ErrNotFound)
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Create adds a category. The slug is derived from the name and must be unique.
func (s *categoryService) Create(ctx context.Context, req *models.CategoryRequest) (*models.Category, error) {
	category, err := s.buildCategory(ctx, 0, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.NewValidationError("A category with this name already exists")
		}
		s.logger.Error("failed to create category", zap.String("slug", category.Slug), zap.Error(err))
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("category created", zap.Int("category_id", category.ID), zap.String("slug", category.Slug))
	return category, nil
}

// Update renames or re-describes a category. The slug follows the new name.
func (s *categoryService) Update(ctx context.Context, id int, req *models.CategoryRequest) (*models.Category, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	category, err := s.buildCategory(ctx, id, req)
	if err != nil {
		return nil, err
	}
	category.ID = existing.ID
	category.PostCount = existing.PostCount
	category.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, category); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, models.NewValidationError("A category with this name already exists")
		}
		s.logger.Error("failed to update category", zap.Int("category_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return category, nil
}

// Delete removes a category. Categories still used by posts are refused with models.ErrCategoryHasPosts.
func (s *categoryService) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("category %w", models.ErrNotFound)
	}

	count, err := s.repo.CountPosts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count category posts: %w", err)
	}
	if count > 0 {
		return models.ErrCategoryHasPosts
	}

	// The foreign key still rejects a post added in between
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("category deleted", zap.Int("category_id", id))
	return nil
}

// buildCategory validates the form and derives the slug
func (s *categoryService) buildCategory(ctx context.Context, exceptID int, req *models.CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)

	verr := models.NewValidationError()
	if n := runeLen(name); n < models.MinCategoryNameLength || n > models.MaxCategoryNameLength {
		verr.Add(fmt.Sprintf("Category name must be between %d and %d characters", models.MinCategoryNameLength, models.MaxCategoryNameLength))
	}
	if runeLen(description) > models.MaxCategoryDescLength {
		verr.Add(fmt.Sprintf("Description must be at most %d characters", models.MaxCategoryDescLength))
	}
	slug := markup.Slugify(name)
	if name != "" && slug == "" {
		verr.Add("Category name must contain letters or numbers")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	exists, err := s.repo.ExistsBySlug(ctx, slug, exceptID)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return nil, models.NewValidationError("A category with this name already exists")
	}

	return &models.Category{
		Name:        name,
		Slug:        slug,
		Description: description,
	}, nil
}
