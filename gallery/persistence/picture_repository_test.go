package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hojun-song/wkfbox/gallery/domain"
	"github.com/hojun-song/wkfbox/shared/db/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testPicture(slug string) *domain.Picture {
	return &domain.Picture{
		Slug:             slug,
		Title:            "A test picture",
		OriginalFilename: "test.png",
		Format:           "png",
		Width:            10,
		Height:           10,
	}
}

func TestPictureRepository_Create(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	p := testPicture("a-test-picture")
	p.Keywords = []string{"cat", "meme"}

	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Failed to create picture: %v", err)
	}

	if p.ID == "" {
		t.Error("Create should generate an ID")
	}
	if p.CreatedAt.IsZero() {
		t.Error("Create should stamp CreatedAt")
	}

	got, err := repo.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to get picture: %v", err)
	}
	if got.Slug != "a-test-picture" {
		t.Errorf("Slug = %q, want %q", got.Slug, "a-test-picture")
	}
	if got.Width != 10 || got.Height != 10 {
		t.Errorf("dimensions = %dx%d, want 10x10", got.Width, got.Height)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "cat" || got.Keywords[1] != "meme" {
		t.Errorf("Keywords = %v, want [cat meme]", got.Keywords)
	}
}

func TestPictureRepository_Create_SlugCollision(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	slugs := make(map[string]bool)
	for i := 0; i < 3; i++ {
		p := testPicture("duplicate")
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Failed to create picture %d: %v", i, err)
		}
		if slugs[p.Slug] {
			t.Errorf("slug %q assigned twice", p.Slug)
		}
		slugs[p.Slug] = true
	}

	for _, want := range []string{"duplicate", "duplicate-2", "duplicate-3"} {
		if !slugs[want] {
			t.Errorf("expected slug %q to be assigned, got %v", want, slugs)
		}
	}
}

func TestPictureRepository_GetBySlug(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	p := testPicture("findable")
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Failed to create picture: %v", err)
	}

	got, err := repo.GetBySlug(ctx, "findable")
	if err != nil {
		t.Fatalf("Failed to get picture by slug: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %q, want %q", got.ID, p.ID)
	}

	if _, err := repo.GetBySlug(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetBySlug error = %v, want ErrNotFound", err)
	}
}

func TestPictureRepository_Get_NotFound(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), "no-such-id")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestPictureRepository_List_Pagination(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		p := testPicture(fmt.Sprintf("pic-%d", i))
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Failed to create picture %d: %v", i, err)
		}
	}

	first, err := repo.List(ctx, 0, 2)
	if err != nil {
		t.Fatalf("Failed to list first page: %v", err)
	}
	second, err := repo.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("Failed to list second page: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("page sizes = %d/%d, want 2/2", len(first), len(second))
	}

	// Newest first, no overlap between consecutive pages.
	if first[0].Slug != "pic-4" || first[1].Slug != "pic-3" {
		t.Errorf("first page = [%s %s], want [pic-4 pic-3]", first[0].Slug, first[1].Slug)
	}
	seen := map[string]bool{first[0].ID: true, first[1].ID: true}
	for _, p := range second {
		if seen[p.ID] {
			t.Errorf("picture %s appears on both pages", p.ID)
		}
	}
	if !second[0].CreatedAt.After(second[1].CreatedAt) {
		t.Error("second page is not ordered by creation time descending")
	}
	if first[1].CreatedAt.Before(second[0].CreatedAt) {
		t.Error("pages are not ordered across the boundary")
	}
}

func TestPictureRepository_ListByCategory(t *testing.T) {
	conn := setupTestDB(t)
	pictures := NewPictureRepository(conn)
	categories := NewCategoryRepository(conn)
	ctx := context.Background()

	cat := &domain.Category{Name: "Drama"}
	if err := categories.Create(ctx, cat); err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}

	episodeOne := 1
	for i, episode := range []*int{&episodeOne, &episodeOne, nil} {
		p := testPicture(fmt.Sprintf("drama-%d", i))
		p.CategoryID = &cat.ID
		p.Episode = episode
		if err := pictures.Create(ctx, p); err != nil {
			t.Fatalf("Failed to create picture %d: %v", i, err)
		}
	}
	// One uncategorized picture that must not leak into category listings.
	if err := pictures.Create(ctx, testPicture("stray")); err != nil {
		t.Fatalf("Failed to create picture: %v", err)
	}

	all, err := pictures.ListByCategory(ctx, cat.ID, nil, 0, 10)
	if err != nil {
		t.Fatalf("Failed to list category: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("category listing size = %d, want 3", len(all))
	}

	ep, err := pictures.ListByCategory(ctx, cat.ID, &episodeOne, 0, 10)
	if err != nil {
		t.Fatalf("Failed to list episode: %v", err)
	}
	if len(ep) != 2 {
		t.Errorf("episode listing size = %d, want 2", len(ep))
	}

	count, err := pictures.CountByCategory(ctx, cat.ID, &episodeOne)
	if err != nil {
		t.Fatalf("Failed to count episode: %v", err)
	}
	if count != 2 {
		t.Errorf("episode count = %d, want 2", count)
	}
}

func TestPictureRepository_Count(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	if err := repo.Create(ctx, testPicture("one")); err != nil {
		t.Fatalf("Failed to create picture: %v", err)
	}

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPictureRepository_Random(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.Random(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Random on empty gallery = %v, want ErrNotFound", err)
	}

	p := testPicture("only")
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Failed to create picture: %v", err)
	}

	got, err := repo.Random(ctx)
	if err != nil {
		t.Fatalf("Random failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("Random ID = %q, want %q", got.ID, p.ID)
	}
}

func TestPictureRepository_Delete(t *testing.T) {
	repo := NewPictureRepository(setupTestDB(t))
	ctx := context.Background()

	p := testPicture("to-delete")
	p.Keywords = []string{"gone"}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Failed to create picture: %v", err)
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := repo.Get(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	// Deleting again, or deleting something that never existed, is fine.
	if err := repo.Delete(ctx, p.ID); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
	if err := repo.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete of unknown id = %v, want nil", err)
	}
}
