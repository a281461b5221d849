package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/config"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(config.StorageConfig{DataDir: filepath.Join(t.TempDir(), "data")}, logger.NewNop())
	require.NoError(t, err)
	return db
}

func TestLoad_MissingDocument(t *testing.T) {
	db := newTestDB(t)

	var records []entities.Record
	found, err := db.Load(context.Background(), "testimonials.json", &records)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, records)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	content := entities.SiteContent{"hero_title": "Books, designed", "about": "Since 1998"}
	require.NoError(t, db.Save(ctx, entities.ContentDocument, content))

	var loaded entities.SiteContent
	found, err := db.Load(ctx, entities.ContentDocument, &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, content, loaded)

	records := []entities.Record{
		{ID: "1", Fields: map[string]any{"name": "Ada", "quote": "Lovely"}},
		{ID: "2", Fields: map[string]any{"name": "Brian", "quote": "Fast"}},
	}
	require.NoError(t, db.Save(ctx, "testimonials.json", records))

	var loadedRecords []entities.Record
	found, err = db.Load(ctx, "testimonials.json", &loadedRecords)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, records, loadedRecords)

	users := []entities.User{{Username: "admin", Password: "$2a$10$abc"}}
	require.NoError(t, db.Save(ctx, entities.UsersDocument, users))

	var loadedUsers []entities.User
	_, err = db.Load(ctx, entities.UsersDocument, &loadedUsers)
	require.NoError(t, err)
	assert.Equal(t, users, loadedUsers)
}

func TestSave_PrettyPrintsAndOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Save(ctx, "content.json", entities.SiteContent{"a": "1", "b": "2"}))
	require.NoError(t, db.Save(ctx, "content.json", entities.SiteContent{"c": "3"}))

	data, err := os.ReadFile(filepath.Join(db.Dir(), "content.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"c\": \"3\"\n}", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(db.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoad_MalformedDocument(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, os.WriteFile(filepath.Join(db.Dir(), "team.json"), []byte("[{"), 0o644))

	var records []entities.Record
	found, err := db.Load(context.Background(), "team.json", &records)

	assert.True(t, found)
	assert.ErrorIs(t, err, entities.ErrMalformedDocument)
}

func TestInvalidDocumentNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"../users.json", "users", "Content.json", "a/b.json", ""} {
		var v any
		_, err := db.Load(ctx, name, &v)
		assert.ErrorIs(t, err, entities.ErrInvalidDocumentName, name)
		assert.ErrorIs(t, db.Save(ctx, name, v), entities.ErrInvalidDocumentName, name)
	}
}

func TestSave_CancelledContext(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, db.Save(ctx, "content.json", entities.SiteContent{}), context.Canceled)
}

func TestOnWriteAndDocuments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var written []string
	db.OnWrite(func(name string) { written = append(written, name) })

	require.NoError(t, db.Save(ctx, "team.json", []entities.Record{}))
	require.NoError(t, db.Save(ctx, "content.json", entities.SiteContent{}))
	require.NoError(t, os.WriteFile(filepath.Join(db.Dir(), "notes.txt"), []byte("x"), 0o644))

	assert.Equal(t, []string{"team.json", "content.json"}, written)

	docs, err := db.Documents()
	require.NoError(t, err)
	assert.Equal(t, []string{"content.json", "team.json"}, docs)

	info := db.GetConnectionInfo()
	assert.Equal(t, db.Dir(), info["data_dir"])
}

func TestHealthCheck(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.HealthCheck())

	require.NoError(t, os.RemoveAll(db.Dir()))
	assert.Error(t, db.HealthCheck())
}
