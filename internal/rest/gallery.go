// Package rest maps HTTP requests onto the gallery services and domain
// errors back onto status codes. Components below this layer never see HTTP.
package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hojun-song/wkfbox/gallery/application"
	"github.com/hojun-song/wkfbox/gallery/domain"
)

// GalleryHandler serves the gallery pages, image bytes, and the upload and
// category forms.
type GalleryHandler struct {
	uploads    *application.UploadService
	gallery    *application.GalleryService
	categories domain.CategoryRepository
	siteTitle  string
}

func NewGalleryHandler(
	uploads *application.UploadService,
	gallery *application.GalleryService,
	categories domain.CategoryRepository,
	siteTitle string,
) *GalleryHandler {
	return &GalleryHandler{
		uploads:    uploads,
		gallery:    gallery,
		categories: categories,
		siteTitle:  siteTitle,
	}
}

// ShowGallery renders the paged listing, newest first. ?page= selects the
// page, defaulting to 1.
func (h *GalleryHandler) ShowGallery(c *gin.Context) {
	page, err := h.gallery.Gallery(c.Request.Context(), pageParam(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.renderListing(c, page)
}

// ShowCategoryGallery renders one category's listing, optionally narrowed
// to a single episode.
func (h *GalleryHandler) ShowCategoryGallery(c *gin.Context) {
	var episode *int
	if raw := c.Param("episode"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.renderError(c, domain.ErrNotFound)
			return
		}
		episode = &n
	}

	page, err := h.gallery.CategoryGallery(c.Request.Context(), c.Param("slug"), episode, pageParam(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	h.renderListing(c, page)
}

func (h *GalleryHandler) renderListing(c *gin.Context, page *application.Page) {
	prev, next := 0, 0
	if page.Number > 1 {
		prev = page.Number - 1
	}
	if page.Number < page.TotalPages {
		next = page.Number + 1
	}
	c.HTML(http.StatusOK, "gallery.html", gin.H{
		"SiteTitle":    h.siteTitle,
		"Pictures":     page.Pictures,
		"Page":         page.Number,
		"TotalPages":   page.TotalPages,
		"PrevPage":     prev,
		"NextPage":     next,
		"CategoryName": page.CategoryName,
		"Episode":      page.Episode,
	})
}

// ShowPicture renders the view page for one picture.
func (h *GalleryHandler) ShowPicture(c *gin.Context) {
	picture, err := h.gallery.Picture(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "picture.html", gin.H{
		"SiteTitle": h.siteTitle,
		"Picture":   picture,
	})
}

// ServeOriginal writes the stored original bytes with their Content-Type.
func (h *GalleryHandler) ServeOriginal(c *gin.Context) {
	h.serveImage(c, application.VariantRaw)
}

// ServeThumbnail writes the thumbnail bytes with their Content-Type.
func (h *GalleryHandler) ServeThumbnail(c *gin.Context) {
	h.serveImage(c, application.VariantThumb)
}

func (h *GalleryHandler) serveImage(c *gin.Context, variant string) {
	data, contentType, err := h.gallery.Image(c.Request.Context(), c.Param("id"), variant)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// RedirectRandom sends the client to an arbitrary picture's view page.
func (h *GalleryHandler) RedirectRandom(c *gin.Context) {
	picture, err := h.gallery.Random(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/image/"+picture.ID)
}

// ShowUploadForm renders the upload form with the known categories.
func (h *GalleryHandler) ShowUploadForm(c *gin.Context) {
	h.renderUploadForm(c, http.StatusOK, "")
}

func (h *GalleryHandler) renderUploadForm(c *gin.Context, status int, message string) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.HTML(status, "upload.html", gin.H{
		"SiteTitle":  h.siteTitle,
		"Categories": categories,
		"Error":      message,
	})
}

// HandleUpload accepts the multipart form: file (required), title, category,
// episode, keywords (comma separated). Success redirects to the new
// picture's view page; rejected input re-renders the form with the reason.
func (h *GalleryHandler) HandleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.renderUploadForm(c, http.StatusBadRequest, "an image file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.renderError(c, err)
		return
	}
	defer file.Close()

	var episode *int
	if raw := strings.TrimSpace(c.PostForm("episode")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.renderUploadForm(c, http.StatusBadRequest, "episode must be a number")
			return
		}
		episode = &n
	}

	picture, err := h.uploads.Upload(c.Request.Context(), application.UploadInput{
		File:     file,
		Filename: fileHeader.Filename,
		Title:    strings.TrimSpace(c.PostForm("title")),
		Category: strings.TrimSpace(c.PostForm("category")),
		Episode:  episode,
		Keywords: splitKeywords(c.PostForm("keywords")),
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.renderUploadForm(c, http.StatusBadRequest, verr.Reason)
			return
		}
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/image/"+picture.ID)
}

// HandleDelete removes a picture and its files, then returns to the gallery.
func (h *GalleryHandler) HandleDelete(c *gin.Context) {
	if err := h.gallery.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// ShowCategoryForm renders the new-category form.
func (h *GalleryHandler) ShowCategoryForm(c *gin.Context) {
	c.HTML(http.StatusOK, "category_form.html", gin.H{
		"SiteTitle": h.siteTitle,
		"Error":     "",
	})
}

// HandleCreateCategory creates a category from the form fields name and
// (optional) slug, then redirects to the category's listing.
func (h *GalleryHandler) HandleCreateCategory(c *gin.Context) {
	category := &domain.Category{
		Name: strings.TrimSpace(c.PostForm("name")),
		Slug: strings.TrimSpace(c.PostForm("slug")),
	}

	if err := h.categories.Create(c.Request.Context(), category); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.HTML(http.StatusBadRequest, "category_form.html", gin.H{
				"SiteTitle": h.siteTitle,
				"Error":     verr.Reason,
			})
			return
		}
		h.renderError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/c/"+category.Slug)
}

// NoFavicon answers the browser's automatic favicon probe with a plain 404.
func (h *GalleryHandler) NoFavicon(c *gin.Context) {
	c.Status(http.StatusNotFound)
}

// renderError maps domain errors onto status codes: unknown ids are 404,
// rejected input is 400, everything else is logged and answered with a
// generic 500.
func (h *GalleryHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"SiteTitle": h.siteTitle,
			"Status":    http.StatusNotFound,
			"Message":   "not found",
		})
	case errors.Is(err, domain.ErrInvalid):
		c.HTML(http.StatusBadRequest, "error.html", gin.H{
			"SiteTitle": h.siteTitle,
			"Status":    http.StatusBadRequest,
			"Message":   err.Error(),
		})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"SiteTitle": h.siteTitle,
			"Status":    http.StatusInternalServerError,
			"Message":   "internal error",
		})
	}
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func splitKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
