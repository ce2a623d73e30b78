package application

import (
	"path/filepath"
	"strings"

	gosimple "github.com/gosimple/slug"
)

// fallbackSlug names pictures whose title and filename both transliterate
// to nothing (e.g. a file called "☆☆☆.png").
const fallbackSlug = "wkf"

// makeSlug builds a deterministic, ASCII-only, URL-safe slug from the
// display title, falling back to the uploaded filename without its
// extension. Non-ASCII input is transliterated, so "테스트" becomes
// "teseuteu" rather than being dropped.
func makeSlug(title, filename string) string {
	if s := gosimple.Make(title); s != "" {
		return s
	}

	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if s := gosimple.Make(stem); s != "" {
		return s
	}

	return fallbackSlug
}
