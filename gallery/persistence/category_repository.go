package persistence

import (
	"context"
	"database/sql"
	"fmt"

	gosimple "github.com/gosimple/slug"

	"github.com/hojun-song/wkfbox/gallery/domain"
	"github.com/hojun-song/wkfbox/shared/db"
)

var _ domain.CategoryRepository = (*SQLiteCategoryRepository)(nil)

// SQLiteCategoryRepository implements domain.CategoryRepository on SQLite.
type SQLiteCategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(conn *sql.DB) *SQLiteCategoryRepository {
	return &SQLiteCategoryRepository{
		db: conn,
	}
}

const insertCategoryQuery = `
	INSERT INTO categories (name, slug) VALUES (?, ?)
`

// Create inserts a category. When c.Slug is empty it is derived from the
// name. Duplicate slugs are a ValidationError, not silently suffixed:
// categories are named deliberately, unlike picture slugs.
func (r *SQLiteCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c == nil {
		return fmt.Errorf("category cannot be nil")
	}
	if c.Name == "" {
		return domain.Invalidf("category name is required")
	}
	if c.Slug == "" {
		c.Slug = gosimple.Make(c.Name)
	}
	if c.Slug == "" {
		return domain.Invalidf("category name %q produces an empty slug", c.Name)
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		var count int
		if err := executor.QueryRowContext(txCtx, `SELECT COUNT(1) FROM categories WHERE slug = ?`, c.Slug).Scan(&count); err != nil {
			return fmt.Errorf("failed to check category slug: %w", err)
		}
		if count > 0 {
			return domain.Invalidf("category %q already exists", c.Slug)
		}

		result, err := executor.ExecContext(txCtx, insertCategoryQuery, c.Name, c.Slug)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read category id: %w", err)
		}
		c.ID = id

		return nil
	})
}

const getCategoryBySlugQuery = `
	SELECT id, name, slug FROM categories WHERE slug = ?
`

// GetBySlug retrieves a category by its slug.
func (r *SQLiteCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	if slug == "" {
		return nil, fmt.Errorf("category slug cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)

	var c domain.Category
	err := executor.QueryRowContext(ctx, getCategoryBySlugQuery, slug).Scan(&c.ID, &c.Name, &c.Slug)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

const getCategoryByNameQuery = `
	SELECT id, name, slug FROM categories WHERE name = ?
`

// GetByNameOrSlug resolves the free-form category field of the upload form:
// an exact name match first, then a slug match.
func (r *SQLiteCategoryRepository) GetByNameOrSlug(ctx context.Context, value string) (*domain.Category, error) {
	if value == "" {
		return nil, fmt.Errorf("category cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)

	var c domain.Category
	err := executor.QueryRowContext(ctx, getCategoryByNameQuery, value).Scan(&c.ID, &c.Name, &c.Slug)
	if err == nil {
		return &c, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}

	return r.GetBySlug(ctx, value)
}

const listCategoriesQuery = `
	SELECT id, name, slug FROM categories ORDER BY name
`

// List returns all categories ordered by name.
func (r *SQLiteCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	executor := db.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		categories = append(categories, &c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows: %w", err)
	}

	return categories, nil
}
