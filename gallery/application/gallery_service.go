package application

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hojun-song/wkfbox/gallery/domain"
	"github.com/hojun-song/wkfbox/shared/db"
)

// Variants of a stored image that can be served.
const (
	VariantRaw   = "raw"
	VariantThumb = "thumb"
)

// GalleryService assembles listing pages and serves stored image bytes.
type GalleryService struct {
	conn       *sql.DB
	store      domain.ImageStore
	pictures   domain.PictureRepository
	categories domain.CategoryRepository
	perPage    int
}

func NewGalleryService(
	conn *sql.DB,
	store domain.ImageStore,
	pictures domain.PictureRepository,
	categories domain.CategoryRepository,
	perPage int,
) *GalleryService {
	return &GalleryService{
		conn:       conn,
		store:      store,
		pictures:   pictures,
		categories: categories,
		perPage:    perPage,
	}
}

// Page is one gallery listing page: a fixed offset/limit window over the
// pictures, newest first.
type Page struct {
	Pictures   []*domain.Picture
	Number     int
	TotalPages int
	// CategoryName and Episode are set on category listings.
	CategoryName string
	Episode      *int
}

// Gallery returns page number (1-based) of all pictures. Pages past the end
// are ErrNotFound; page 1 of an empty gallery is an empty page.
func (s *GalleryService) Gallery(ctx context.Context, number int) (*Page, error) {
	if number < 1 {
		number = 1
	}

	count, err := s.pictures.Count(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.buildPage(number, count)
	if err != nil {
		return nil, err
	}

	page.Pictures, err = s.pictures.List(ctx, (number-1)*s.perPage, s.perPage)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// CategoryGallery returns page number of one category's pictures, optionally
// narrowed to a single episode. An unknown category slug is ErrNotFound.
func (s *GalleryService) CategoryGallery(ctx context.Context, slug string, episode *int, number int) (*Page, error) {
	if number < 1 {
		number = 1
	}

	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	count, err := s.pictures.CountByCategory(ctx, category.ID, episode)
	if err != nil {
		return nil, err
	}

	page, err := s.buildPage(number, count)
	if err != nil {
		return nil, err
	}
	page.CategoryName = category.Name
	page.Episode = episode

	page.Pictures, err = s.pictures.ListByCategory(ctx, category.ID, episode, (number-1)*s.perPage, s.perPage)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *GalleryService) buildPage(number, count int) (*Page, error) {
	totalPages := (count + s.perPage - 1) / s.perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if number > totalPages {
		return nil, domain.ErrNotFound
	}
	return &Page{Number: number, TotalPages: totalPages}, nil
}

// Picture returns one picture's metadata by id.
func (s *GalleryService) Picture(ctx context.Context, id string) (*domain.Picture, error) {
	return s.pictures.Get(ctx, id)
}

// Random returns an arbitrary picture, ErrNotFound on an empty gallery.
func (s *GalleryService) Random(ctx context.Context) (*domain.Picture, error) {
	return s.pictures.Random(ctx)
}

// Image returns the bytes and Content-Type for one variant of a picture.
func (s *GalleryService) Image(ctx context.Context, id, variant string) ([]byte, string, error) {
	picture, err := s.pictures.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	var data []byte
	switch variant {
	case VariantRaw:
		data, err = s.store.Get(id)
	case VariantThumb:
		data, err = s.store.GetThumbnail(id)
	default:
		return nil, "", fmt.Errorf("unknown image variant %q", variant)
	}
	if err != nil {
		return nil, "", err
	}

	return data, picture.ContentType(), nil
}

// Remove deletes the metadata row and both stored files. The row delete and
// the file removal run inside one scoped transaction, so a filesystem
// failure rolls the row back; removing an id that is already gone is a
// no-op. Idempotent.
func (s *GalleryService) Remove(ctx context.Context, id string) error {
	err := db.RunInTransaction(ctx, s.conn, func(txCtx context.Context) error {
		if err := s.pictures.Delete(txCtx, id); err != nil {
			return err
		}
		return s.store.Delete(id)
	})
	if err != nil {
		return err
	}

	log.Info().Str("id", id).Msg("picture removed")
	return nil
}
