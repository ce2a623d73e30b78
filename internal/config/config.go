// Package config loads the process configuration once at startup. The
// resulting Config value is immutable and handed to each component at
// construction; nothing reads settings from ambient globals afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	SiteTitle      string   `yaml:"site_title"`
	ListenAddr     string   `yaml:"listen_addr"`
	StorageRoot    string   `yaml:"storage_root"`
	DatabasePath   string   `yaml:"database_path"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	AllowedFormats []string `yaml:"allowed_formats"`
	ThumbnailSize  int      `yaml:"thumbnail_size"`
	PerPage        int      `yaml:"per_page"`
	LogLevel       string   `yaml:"log_level"`
	LogFormat      string   `yaml:"log_format"`
}

// knownFormats are the image formats the decoder registers.
var knownFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

// Load reads the YAML file at path, overlays WKFBOX_* environment variables
// (a local .env file is merged into the environment first, without
// overwriting variables already set), validates the result, and verifies the
// storage root is writable. Any failure here should stop the process.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := ensureWritableDir(cfg.StorageRoot); err != nil {
		return nil, fmt.Errorf("storage root %s is not usable: %w", cfg.StorageRoot, err)
	}
	if err := ensureWritableDir(filepath.Dir(cfg.DatabasePath)); err != nil {
		return nil, fmt.Errorf("database directory is not usable: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		SiteTitle:      "wkfbox",
		ListenAddr:     ":8080",
		MaxUploadBytes: 10 << 20,
		AllowedFormats: []string{"jpeg", "png", "gif"},
		ThumbnailSize:  256,
		PerPage:        20,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WKFBOX_SITE_TITLE"); v != "" {
		cfg.SiteTitle = v
	}
	if v := os.Getenv("WKFBOX_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("WKFBOX_STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("WKFBOX_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("WKFBOX_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("WKFBOX_ALLOWED_FORMATS"); v != "" {
		cfg.AllowedFormats = strings.Split(v, ",")
	}
	if v := os.Getenv("WKFBOX_THUMBNAIL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ThumbnailSize = n
		}
	}
	if v := os.Getenv("WKFBOX_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PerPage = n
		}
	}
	if v := os.Getenv("WKFBOX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WKFBOX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func (c *Config) validate() error {
	if c.StorageRoot == "" {
		return fmt.Errorf("storage_root is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.ThumbnailSize <= 0 {
		return fmt.Errorf("thumbnail_size must be positive")
	}
	if c.PerPage <= 0 {
		return fmt.Errorf("per_page must be positive")
	}
	if len(c.AllowedFormats) == 0 {
		return fmt.Errorf("allowed_formats cannot be empty")
	}
	for i, f := range c.AllowedFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !knownFormats[f] {
			return fmt.Errorf("unknown image format %q in allowed_formats", f)
		}
		c.AllowedFormats[i] = f
	}
	return nil
}

// FormatAllowed reports whether a decoded format name is accepted for upload.
func (c *Config) FormatAllowed(format string) bool {
	for _, f := range c.AllowedFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ensureWritableDir creates the directory if needed and probes it with a
// throwaway file, so a read-only volume fails the startup instead of the
// first upload.
func ensureWritableDir(dir string) error {
	if dir == "" || dir == "/" {
		return fmt.Errorf("unsafe directory path %q", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	probe.Close()
	return os.Remove(probe.Name())
}
