package domain

import (
	"context"
	"time"
)

// Picture represents one stored image ("wkf") and its metadata.
// The original bytes and the derived thumbnail live in the ImageStore,
// keyed by ID; everything else lives in the metadata repository.
type Picture struct {
	ID               string
	Slug             string
	Title            string
	OriginalFilename string
	Format           string
	Width            int
	Height           int
	CategoryID       *int64
	Episode          *int
	Keywords         []string
	CreatedAt        time.Time
}

// ContentType returns the MIME type for the picture's stored format.
func (p *Picture) ContentType() string {
	switch p.Format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

type PictureRepository interface {
	// Create inserts a new picture row. An empty ID is generated, CreatedAt
	// is stamped, and slug collisions are resolved with a numeric suffix.
	// The persisted values are written back into p.
	Create(ctx context.Context, p *Picture) error

	Get(ctx context.Context, id string) (*Picture, error)
	GetBySlug(ctx context.Context, slug string) (*Picture, error)

	// List returns pictures ordered by creation time descending. Pages are
	// fixed offset/limit windows, restartable from the caller's perspective.
	List(ctx context.Context, offset, limit int) ([]*Picture, error)
	ListByCategory(ctx context.Context, categoryID int64, episode *int, offset, limit int) ([]*Picture, error)

	Count(ctx context.Context) (int, error)
	CountByCategory(ctx context.Context, categoryID int64, episode *int) (int, error)

	// Random returns an arbitrary picture, ErrNotFound when the gallery is empty.
	Random(ctx context.Context) (*Picture, error)

	// Delete removes the row. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
}

// Category groups pictures, addressed by a unique slug.
type Category struct {
	ID   int64
	Name string
	Slug string
}

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	// GetByNameOrSlug resolves the free-form category field of the upload form.
	GetByNameOrSlug(ctx context.Context, value string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
}

// ImageStore holds the actual image bytes. No other component touches the
// files on disk.
type ImageStore interface {
	Put(id string, data []byte) (string, error)
	PutThumbnail(id string, data []byte) error
	Get(id string) ([]byte, error)
	GetThumbnail(id string) ([]byte, error)
	// Delete removes the original and the thumbnail. Idempotent.
	Delete(id string) error
}
