package repository

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/config"
	"github.com/bibliodesign/site/internal/infrastructure/database"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
)

func setupRepositories(t *testing.T) (*Repositories, *database.DB) {
	t.Helper()
	db, err := database.New(config.StorageConfig{DataDir: t.TempDir()}, logger.NewNop())
	require.NoError(t, err)

	frozen := time.UnixMilli(1700000000000)
	ids := NewIDGeneratorWithClock(func() time.Time { return frozen })
	return New(db, ids), db
}

func record(fields map[string]any) entities.Record {
	return entities.Record{Fields: fields}
}

func TestCollection_ListAbsentIsEmpty(t *testing.T) {
	repos, _ := setupRepositories(t)

	for _, c := range entities.Collections {
		repo, err := repos.Collection(c)
		require.NoError(t, err)

		records, err := repo.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, records, c)
		assert.Empty(t, records, c)
	}
}

func TestCollection_AppendThenDeleteKeepsOrder(t *testing.T) {
	repos, _ := setupRepositories(t)
	ctx := context.Background()
	repo := repos.Testimonials()

	const n = 5
	var created []entities.Record
	for i := 0; i < n; i++ {
		rec, err := repo.Append(ctx, record(map[string]any{"name": "client " + strconv.Itoa(i)}))
		require.NoError(t, err)
		created = append(created, rec)
	}

	// ids are unique even with a frozen clock
	seen := map[string]bool{}
	for _, rec := range created {
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}

	removed, err := repo.Delete(ctx, created[2].ID)
	require.NoError(t, err)
	assert.True(t, removed)

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, n-1)

	want := append(append([]entities.Record{}, created[:2]...), created[3:]...)
	assert.Equal(t, want, records)
}

func TestCollection_DeleteUnknownIDIsNoop(t *testing.T) {
	repos, _ := setupRepositories(t)
	ctx := context.Background()
	repo := repos.Team()

	_, err := repo.Append(ctx, record(map[string]any{"name": "Ada", "photo": ""}))
	require.NoError(t, err)
	before, err := repo.List(ctx)
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, removed)

	after, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCollection_LegacyNumericIDs(t *testing.T) {
	repos, db := setupRepositories(t)
	ctx := context.Background()

	legacy := `[
  {"id": 1700000000000, "name": "Old project", "image": "/images/1700000000000-cover.png"},
  {"id": 1, "name": "one"},
  {"id": "01", "name": "zero-one"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(db.Dir(), "portfolio.json"), []byte(legacy), 0o644))

	repo := repos.Portfolio()
	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1700000000000", records[0].ID)
	assert.Equal(t, "/images/1700000000000-cover.png", records[0].Image())

	removed, err := repo.Delete(ctx, "1700000000000")
	require.NoError(t, err)
	assert.True(t, removed)

	// "1" and "01" are different ids once normalised to strings
	removed, err = repo.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)

	records, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "01", records[0].ID)
	assert.Equal(t, "zero-one", records[0].Get("name"))
}

func TestCollection_MalformedDocument(t *testing.T) {
	repos, db := setupRepositories(t)
	require.NoError(t, os.WriteFile(filepath.Join(db.Dir(), "inquiries.json"), []byte("{not json"), 0o644))

	_, err := repos.Inquiries().List(context.Background())
	assert.ErrorIs(t, err, entities.ErrMalformedDocument)

	_, err = repos.Inquiries().Append(context.Background(), record(nil))
	assert.ErrorIs(t, err, entities.ErrMalformedDocument)
}

func TestCollection_DeleteLastLeavesEmptyArray(t *testing.T) {
	repos, db := setupRepositories(t)
	ctx := context.Background()

	created, err := repos.Services().Append(ctx, record(map[string]any{"title": "Typesetting"}))
	require.NoError(t, err)

	removed, err := repos.Services().Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	raw, err := os.ReadFile(filepath.Join(db.Dir(), "services.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestUnknownCollection(t *testing.T) {
	repos, _ := setupRepositories(t)

	_, err := repos.Collection(entities.Collection("widgets"))
	assert.ErrorIs(t, err, entities.ErrUnknownCollection)
}

func TestSiteContent_ReplaceWholesale(t *testing.T) {
	repos, _ := setupRepositories(t)
	ctx := context.Background()

	content, err := repos.Content.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, content)

	require.NoError(t, repos.Content.Replace(ctx, entities.SiteContent{"title": "A", "tagline": "B"}))
	require.NoError(t, repos.Content.Replace(ctx, entities.SiteContent{"title": "C"}))

	content, err = repos.Content.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entities.SiteContent{"title": "C"}, content)
}

func TestUsers_GetByUsername(t *testing.T) {
	repos, _ := setupRepositories(t)
	ctx := context.Background()

	require.NoError(t, repos.Users.Save(ctx, entities.User{Username: "admin", Password: "hash-1"}))
	require.NoError(t, repos.Users.Save(ctx, entities.User{Username: "editor", Password: "hash-2"}))

	user, err := repos.Users.GetByUsername(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", user.Password)

	_, err = repos.Users.GetByUsername(ctx, "Admin")
	assert.ErrorIs(t, err, entities.ErrUserNotFound)

	require.NoError(t, repos.Users.Save(ctx, entities.User{Username: "admin", Password: "hash-3"}))
	users, err := repos.Users.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entities.User{
		{Username: "admin", Password: "hash-3"},
		{Username: "editor", Password: "hash-2"},
	}, users)
}

func TestIDGenerator_Monotonic(t *testing.T) {
	now := time.UnixMilli(1000)
	gen := NewIDGeneratorWithClock(func() time.Time { return now })

	assert.Equal(t, "1000", gen.Next())
	assert.Equal(t, "1001", gen.Next())

	now = time.UnixMilli(5000)
	assert.Equal(t, "5000", gen.Next())

	// a clock going backwards never yields a smaller id
	now = time.UnixMilli(10)
	assert.Equal(t, "5001", gen.Next())
}
