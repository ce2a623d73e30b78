package rest

import "github.com/gin-gonic/gin"

// RegisterRoutes wires every route the server exposes. The table is built
// once at startup; nothing registers handlers dynamically afterwards.
func RegisterRoutes(router *gin.Engine, h *GalleryHandler) {
	router.GET("/", h.ShowGallery)
	router.GET("/favicon.ico", h.NoFavicon)
	router.GET("/random", h.RedirectRandom)

	router.GET("/upload", h.ShowUploadForm)
	router.POST("/upload", h.HandleUpload)

	images := router.Group("/image")
	{
		images.GET("/:id", h.ShowPicture)
		images.GET("/:id/raw", h.ServeOriginal)
		images.GET("/:id/thumb", h.ServeThumbnail)
		images.POST("/:id/delete", h.HandleDelete)
	}

	router.GET("/categories/new", h.ShowCategoryForm)
	router.POST("/categories", h.HandleCreateCategory)
	router.GET("/c/:slug", h.ShowCategoryGallery)
	router.GET("/c/:slug/:episode", h.ShowCategoryGallery)
}
