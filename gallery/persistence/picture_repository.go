package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hojun-song/wkfbox/gallery/domain"
	"github.com/hojun-song/wkfbox/shared/db"
)

var _ domain.PictureRepository = (*SQLitePictureRepository)(nil)

// SQLitePictureRepository implements domain.PictureRepository on SQLite.
type SQLitePictureRepository struct {
	db *sql.DB
}

// NewPictureRepository creates a new SQLitePictureRepository from a standard sql.DB
func NewPictureRepository(conn *sql.DB) *SQLitePictureRepository {
	return &SQLitePictureRepository{
		db: conn,
	}
}

const insertPictureQuery = `
	INSERT INTO pictures (id, slug, title, original_filename, format, width, height, category_id, episode, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const slugExistsQuery = `
	SELECT COUNT(1) FROM pictures WHERE slug = ?
`

// Create inserts a new picture row. The ID is generated when empty and
// CreatedAt is stamped at insertion. The slug check-and-insert runs inside
// one transaction, so concurrent uploads with colliding slugs serialize
// here; the UNIQUE index backs the check up.
func (r *SQLitePictureRepository) Create(ctx context.Context, p *domain.Picture) error {
	if p == nil {
		return fmt.Errorf("picture cannot be nil")
	}

	if p.Slug == "" {
		return fmt.Errorf("picture slug cannot be empty")
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	return db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		slug, err := resolveSlug(txCtx, executor, p.Slug)
		if err != nil {
			return err
		}
		p.Slug = slug

		_, err = executor.ExecContext(txCtx, insertPictureQuery,
			p.ID,
			p.Slug,
			p.Title,
			p.OriginalFilename,
			p.Format,
			p.Width,
			p.Height,
			p.CategoryID,
			p.Episode,
			p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert picture: %w", err)
		}

		if err := attachKeywords(txCtx, executor, p.ID, p.Keywords); err != nil {
			return err
		}

		return nil
	})
}

// resolveSlug returns base when free, otherwise base-2, base-3, … until a
// free slug is found.
func resolveSlug(ctx context.Context, executor db.Executor, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var count int
		err := executor.QueryRowContext(ctx, slugExistsQuery, candidate).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

const pictureColumns = `id, slug, title, original_filename, format, width, height, category_id, episode, created_at`

const getPictureQuery = `
	SELECT ` + pictureColumns + `
	FROM pictures
	WHERE id = ?
`

// Get retrieves a single picture by ID, keywords included.
func (r *SQLitePictureRepository) Get(ctx context.Context, id string) (*domain.Picture, error) {
	if id == "" {
		return nil, fmt.Errorf("picture ID cannot be empty")
	}
	return r.getOne(ctx, getPictureQuery, id)
}

const getPictureBySlugQuery = `
	SELECT ` + pictureColumns + `
	FROM pictures
	WHERE slug = ?
`

// GetBySlug retrieves a single picture by its slug.
func (r *SQLitePictureRepository) GetBySlug(ctx context.Context, slug string) (*domain.Picture, error) {
	if slug == "" {
		return nil, fmt.Errorf("picture slug cannot be empty")
	}
	return r.getOne(ctx, getPictureBySlugQuery, slug)
}

const randomPictureQuery = `
	SELECT ` + pictureColumns + `
	FROM pictures
	ORDER BY RANDOM()
	LIMIT 1
`

// Random returns an arbitrary picture.
func (r *SQLitePictureRepository) Random(ctx context.Context) (*domain.Picture, error) {
	return r.getOne(ctx, randomPictureQuery)
}

func (r *SQLitePictureRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Picture, error) {
	executor := db.GetExecutor(ctx, r.db)

	var row pictureRow
	err := executor.QueryRowContext(ctx, query, args...).Scan(row.fields()...)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get picture: %w", err)
	}

	p := row.toDomain()

	keywords, err := loadKeywords(ctx, executor, p.ID)
	if err != nil {
		return nil, err
	}
	p.Keywords = keywords

	return p, nil
}

const listPicturesQuery = `
	SELECT ` + pictureColumns + `
	FROM pictures
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?
`

// List retrieves pictures ordered by creation time descending, newest
// first. Keywords are not loaded for listings.
func (r *SQLitePictureRepository) List(ctx context.Context, offset, limit int) ([]*domain.Picture, error) {
	if limit <= 0 {
		limit = 20 // Default limit
	}
	if offset < 0 {
		offset = 0
	}
	return r.listWith(ctx, listPicturesQuery, limit, offset)
}

const listByCategoryQuery = `
	SELECT ` + pictureColumns + `
	FROM pictures
	WHERE category_id = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?
`

const listByCategoryEpisodeQuery = `
	SELECT ` + pictureColumns + `
	FROM pictures
	WHERE category_id = ? AND episode = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ? OFFSET ?
`

// ListByCategory retrieves a category's pictures, optionally narrowed to one episode.
func (r *SQLitePictureRepository) ListByCategory(ctx context.Context, categoryID int64, episode *int, offset, limit int) ([]*domain.Picture, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if episode != nil {
		return r.listWith(ctx, listByCategoryEpisodeQuery, categoryID, *episode, limit, offset)
	}
	return r.listWith(ctx, listByCategoryQuery, categoryID, limit, offset)
}

func (r *SQLitePictureRepository) listWith(ctx context.Context, query string, args ...any) ([]*domain.Picture, error) {
	executor := db.GetExecutor(ctx, r.db)

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pictures: %w", err)
	}
	defer rows.Close()

	pictures := make([]*domain.Picture, 0)
	for rows.Next() {
		var row pictureRow
		if err := rows.Scan(row.fields()...); err != nil {
			return nil, fmt.Errorf("failed to scan picture row: %w", err)
		}
		pictures = append(pictures, row.toDomain())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating picture rows: %w", err)
	}

	return pictures, nil
}

const countPicturesQuery = `SELECT COUNT(1) FROM pictures`

// Count returns the total number of pictures.
func (r *SQLitePictureRepository) Count(ctx context.Context) (int, error) {
	return r.countWith(ctx, countPicturesQuery)
}

const countByCategoryQuery = `SELECT COUNT(1) FROM pictures WHERE category_id = ?`

const countByCategoryEpisodeQuery = `SELECT COUNT(1) FROM pictures WHERE category_id = ? AND episode = ?`

// CountByCategory returns the number of pictures in a category, optionally
// narrowed to one episode.
func (r *SQLitePictureRepository) CountByCategory(ctx context.Context, categoryID int64, episode *int) (int, error) {
	if episode != nil {
		return r.countWith(ctx, countByCategoryEpisodeQuery, categoryID, *episode)
	}
	return r.countWith(ctx, countByCategoryQuery, categoryID)
}

func (r *SQLitePictureRepository) countWith(ctx context.Context, query string, args ...any) (int, error) {
	executor := db.GetExecutor(ctx, r.db)

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pictures: %w", err)
	}
	return count, nil
}

const deletePictureQuery = `
	DELETE FROM pictures WHERE id = ?
`

// Delete removes the picture row. Deleting an id that was never stored, or
// was already deleted, is not an error. The keyword associations cascade.
func (r *SQLitePictureRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("picture ID cannot be empty")
	}

	executor := db.GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, deletePictureQuery, id); err != nil {
		return fmt.Errorf("failed to delete picture: %w", err)
	}
	return nil
}

// pictureRow is a private struct used to scan database rows
type pictureRow struct {
	ID               string
	Slug             string
	Title            string
	OriginalFilename string
	Format           string
	Width            int
	Height           int
	CategoryID       sql.NullInt64
	Episode          sql.NullInt64
	CreatedAt        time.Time
}

func (pr *pictureRow) fields() []any {
	return []any{
		&pr.ID,
		&pr.Slug,
		&pr.Title,
		&pr.OriginalFilename,
		&pr.Format,
		&pr.Width,
		&pr.Height,
		&pr.CategoryID,
		&pr.Episode,
		&pr.CreatedAt,
	}
}

// toDomain converts a pictureRow to a domain.Picture, handling nullable columns
func (pr *pictureRow) toDomain() *domain.Picture {
	p := &domain.Picture{
		ID:               pr.ID,
		Slug:             pr.Slug,
		Title:            pr.Title,
		OriginalFilename: pr.OriginalFilename,
		Format:           pr.Format,
		Width:            pr.Width,
		Height:           pr.Height,
		CreatedAt:        pr.CreatedAt,
	}

	if pr.CategoryID.Valid {
		id := pr.CategoryID.Int64
		p.CategoryID = &id
	}
	if pr.Episode.Valid {
		ep := int(pr.Episode.Int64)
		p.Episode = &ep
	}

	return p
}
