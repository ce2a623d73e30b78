package persistence

import (
	"context"
	"database/sql"
	"fmt"

	gosimple "github.com/gosimple/slug"

	"github.com/hojun-song/wkfbox/shared/db"
)

const getKeywordQuery = `
	SELECT id FROM keywords WHERE slug = ?
`

const insertKeywordQuery = `
	INSERT INTO keywords (name, slug) VALUES (?, ?)
`

const attachKeywordQuery = `
	INSERT OR IGNORE INTO picture_keywords (picture_id, keyword_id) VALUES (?, ?)
`

// attachKeywords links names to the picture, creating keyword rows as
// needed. Keywords are deduplicated by their slugified form.
func attachKeywords(ctx context.Context, executor db.Executor, pictureID string, names []string) error {
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		kwSlug := gosimple.Make(name)
		if kwSlug == "" || seen[kwSlug] {
			continue
		}
		seen[kwSlug] = true

		var keywordID int64
		err := executor.QueryRowContext(ctx, getKeywordQuery, kwSlug).Scan(&keywordID)
		if err == sql.ErrNoRows {
			result, insErr := executor.ExecContext(ctx, insertKeywordQuery, name, kwSlug)
			if insErr != nil {
				return fmt.Errorf("failed to insert keyword %q: %w", name, insErr)
			}
			keywordID, insErr = result.LastInsertId()
			if insErr != nil {
				return fmt.Errorf("failed to read keyword id: %w", insErr)
			}
		} else if err != nil {
			return fmt.Errorf("failed to look up keyword %q: %w", name, err)
		}

		if _, err := executor.ExecContext(ctx, attachKeywordQuery, pictureID, keywordID); err != nil {
			return fmt.Errorf("failed to attach keyword %q: %w", name, err)
		}
	}

	return nil
}

const loadKeywordsQuery = `
	SELECT k.name
	FROM keywords k
	JOIN picture_keywords pk ON pk.keyword_id = k.id
	WHERE pk.picture_id = ?
	ORDER BY k.name
`

func loadKeywords(ctx context.Context, executor db.Executor, pictureID string) ([]string, error) {
	rows, err := executor.QueryContext(ctx, loadKeywordsQuery, pictureID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keywords: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan keyword row: %w", err)
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keyword rows: %w", err)
	}

	return names, nil
}
