// Package application holds the gallery's use cases: accepting uploads and
// assembling pages for the HTTP layer.
package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hojun-song/wkfbox/gallery/domain"
)

// UploadService validates an incoming file, derives the thumbnail and slug,
// and persists bytes and metadata in that order.
type UploadService struct {
	store      domain.ImageStore
	pictures   domain.PictureRepository
	categories domain.CategoryRepository

	maxBytes       int64
	thumbnailSize  int
	allowedFormats []string
}

func NewUploadService(
	store domain.ImageStore,
	pictures domain.PictureRepository,
	categories domain.CategoryRepository,
	maxBytes int64,
	thumbnailSize int,
	allowedFormats []string,
) *UploadService {
	return &UploadService{
		store:          store,
		pictures:       pictures,
		categories:     categories,
		maxBytes:       maxBytes,
		thumbnailSize:  thumbnailSize,
		allowedFormats: allowedFormats,
	}
}

// UploadInput carries one multipart upload into the service.
type UploadInput struct {
	File     io.Reader
	Filename string
	Title    string
	// Category is the free-form category field: a name or a slug, empty for none.
	Category string
	Episode  *int
	Keywords []string
}

// Upload runs the whole pipeline: size check, decode, slug, thumbnail,
// store, insert. When anything fails after bytes were written, the written
// files are deleted before the error is returned; the store and the
// repository are independent, so a compensating delete is the only way to
// keep them consistent.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*domain.Picture, error) {
	if in.File == nil {
		return nil, domain.Invalidf("file is required")
	}

	data, err := s.readCapped(in.File)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.Invalidf("file is not a decodable image: %v", err)
	}
	if !s.formatAllowed(format) {
		return nil, domain.Invalidf("image format %q is not allowed", format)
	}

	var categoryID *int64
	if in.Category != "" {
		category, err := s.categories.GetByNameOrSlug(ctx, in.Category)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalidf("unknown category %q", in.Category)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve category: %w", err)
		}
		categoryID = &category.ID
	}

	thumb, err := s.renderThumbnail(img, format)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	picture := &domain.Picture{
		ID:               uuid.NewString(),
		Slug:             makeSlug(in.Title, in.Filename),
		Title:            in.Title,
		OriginalFilename: in.Filename,
		Format:           format,
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		CategoryID:       categoryID,
		Episode:          in.Episode,
		Keywords:         in.Keywords,
	}

	// Bytes first, metadata second: a row must never point at a missing file.
	if _, err := s.store.Put(picture.ID, data); err != nil {
		return nil, err
	}
	if err := s.store.PutThumbnail(picture.ID, thumb); err != nil {
		s.compensate(picture.ID)
		return nil, err
	}

	if err := s.pictures.Create(ctx, picture); err != nil {
		s.compensate(picture.ID)
		return nil, err
	}

	log.Info().
		Str("id", picture.ID).
		Str("slug", picture.Slug).
		Str("format", picture.Format).
		Int("width", picture.Width).
		Int("height", picture.Height).
		Msg("picture uploaded")

	return picture, nil
}

// readCapped reads the upload, rejecting anything past the configured cap
// without buffering the excess.
func (s *UploadService) readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.Invalidf("file exceeds the %d byte upload limit", s.maxBytes)
	}
	if len(data) == 0 {
		return nil, domain.Invalidf("file is empty")
	}
	return data, nil
}

func (s *UploadService) formatAllowed(format string) bool {
	for _, f := range s.allowedFormats {
		if f == format {
			return true
		}
	}
	return false
}

// renderThumbnail scales the image down to fit the configured square bound,
// preserving aspect ratio, and re-encodes it in the source format. Images
// already within the bound pass through imaging.Fit unscaled.
func (s *UploadService) renderThumbnail(img image.Image, format string) ([]byte, error) {
	thumb := imaging.Fit(img, s.thumbnailSize, s.thumbnailSize, imaging.Lanczos)

	var encodeAs imaging.Format
	switch format {
	case "jpeg":
		encodeAs = imaging.JPEG
	case "png":
		encodeAs = imaging.PNG
	case "gif":
		encodeAs = imaging.GIF
	default:
		return nil, domain.Invalidf("image format %q is not allowed", format)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, encodeAs); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// compensate removes any bytes written for a failed upload. A failing
// cleanup is logged and swallowed: the original error matters more to the
// caller, and the orphaned file cannot be referenced by any row.
func (s *UploadService) compensate(id string) {
	if err := s.store.Delete(id); err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to clean up after aborted upload")
	}
}
