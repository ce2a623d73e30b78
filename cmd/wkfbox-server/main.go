package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hojun-song/wkfbox/gallery/application"
	"github.com/hojun-song/wkfbox/gallery/persistence"
	"github.com/hojun-song/wkfbox/gallery/storage"
	"github.com/hojun-song/wkfbox/internal/config"
	"github.com/hojun-song/wkfbox/internal/middleware"
	"github.com/hojun-song/wkfbox/internal/rest"
	"github.com/hojun-song/wkfbox/shared/db/sqlite"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "wkfbox.yaml", "path to the configuration file")
	templatesGlob := flag.String("templates", "web/templates/*.html", "glob for the HTML templates")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}

	// Initialize dependencies
	conn, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer conn.Close()

	store := storage.NewFileStore(cfg.StorageRoot)
	pictures := persistence.NewPictureRepository(conn)
	categories := persistence.NewCategoryRepository(conn)

	uploads := application.NewUploadService(store, pictures, categories,
		cfg.MaxUploadBytes, cfg.ThumbnailSize, cfg.AllowedFormats)
	gallery := application.NewGalleryService(conn, store, pictures, categories, cfg.PerPage)
	handler := rest.NewGalleryHandler(uploads, gallery, categories, cfg.SiteTitle)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.LoadHTMLGlob(*templatesGlob)

	rest.RegisterRoutes(router, handler)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("title", cfg.SiteTitle).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}

// setupLogger reconfigures the global zerolog logger from the loaded
// configuration. Startup errors before this point use zerolog's defaults.
func setupLogger(level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}

	var logger zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	default:
		return errors.New("unsupported log format: " + format)
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = logger.Level(lvl)

	return nil
}
