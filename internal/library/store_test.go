package library_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kelpmedia/kelp/internal/library"
	"github.com/kelpmedia/kelp/pkg/errors"
	"github.com/kelpmedia/kelp/pkg/models"
)

func newTestStore(t *testing.T) *library.Store {
	t.Helper()
	store, err := library.Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(url, platform, sourceID, title string) *models.MediaRecord {
	return &models.MediaRecord{
		SourceURL: url,
		Platform:  platform,
		SourceID:  sourceID,
		Title:     title,
		Uploader:  "someone",
	}
}

func TestInsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("https://example.com/v/1", "youtube", "v1", "First Video")
	record.ContentHash = "abc123"
	require.NoError(t, store.Insert(ctx, record))
	require.NotZero(t, record.ID)

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "First Video", got.Title)
	assert.Equal(t, "youtube", got.Platform)
	assert.False(t, got.IngestedAt.IsZero())

	byURL, err := store.GetByURL(ctx, "https://example.com/v/1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, byURL.ID)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 99)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.GetByURL(context.Background(), "https://nope.example.com")
	assert.True(t, errors.IsNotFound(err))
}

func TestInsertDuplicateURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testRecord("https://example.com/v/1", "youtube", "v1", "First")
	require.NoError(t, store.Insert(ctx, first))

	dup := testRecord("https://example.com/v/1", "youtube", "v1-other", "Copy")
	err := store.Insert(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.IsDuplicate(err))

	axis, ok := errors.DuplicateAxis(err)
	require.True(t, ok)
	assert.Equal(t, errors.CollisionURL, axis)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, first.ID, appErr.ExistingID)
}

func TestInsertDuplicateSourceID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx,
		testRecord("https://example.com/v/1", "youtube", "v1", "First")))

	// Same platform and source id behind a different URL.
	err := store.Insert(ctx,
		testRecord("https://example.com/v/1?t=42", "youtube", "v1", "Timestamped"))
	assert.True(t, errors.IsDuplicate(err))
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("https://example.com/v/1", "youtube", "v1", "First")
	record.ContentHash = "deadbeef"
	require.NoError(t, store.Insert(ctx, record))

	exists, err := store.ExistsByURL(ctx, "https://example.com/v/1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsByURL(ctx, "https://example.com/v/2")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.ExistsByHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsByHash(ctx, "cafebabe")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("https://example.com/v/1", "youtube", "v1", "Final Exam Review")
	record.Description = "calculus walkthrough"
	require.NoError(t, store.Insert(ctx, record))
	require.NoError(t, store.Insert(ctx,
		testRecord("https://example.com/v/2", "youtube", "v2", "Cooking Pasta")))

	// Prefix match on a title word.
	results, err := store.Search(ctx, "exam", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Final Exam Review", results[0].Title)

	// Match on description content.
	results, err = store.Search(ctx, "calcul", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// No match.
	results, err = store.Search(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEscapesQuotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("https://example.com/v/1", "youtube", "v1", `The "Best" Tutorial`)
	require.NoError(t, store.Insert(ctx, record))

	// Embedded quotes must not break the query syntax.
	results, err := store.Search(ctx, `"best"`, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchIndexFollowsUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("https://example.com/v/1", "youtube", "v1", "Original Title")
	require.NoError(t, store.Insert(ctx, record))

	record.Title = "Renamed Lecture"
	require.NoError(t, store.Update(ctx, record))

	results, err := store.Search(ctx, "renamed", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = store.Search(ctx, "original", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchIndexFollowsDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := testRecord("https://example.com/v/1", "youtube", "v1", "Doomed Video")
	require.NoError(t, store.Insert(ctx, record))

	deleted, err := store.Delete(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	results, err := store.Search(ctx, "doomed", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	deleted, err = store.Delete(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testRecord("https://example.com/v/1", "youtube", "v1", "A")
	a.FileSize = 100
	b := testRecord("https://example.com/v/2", "youtube", "v2", "B")
	b.FileSize = 200
	c := testRecord("https://example.com/v/3", "tiktok", "v3", "C")
	c.FileSize = 50
	for _, r := range []*models.MediaRecord{a, b, c} {
		require.NoError(t, store.Insert(ctx, r))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, int64(350), stats.TotalBytes)
	assert.Equal(t, int64(2), stats.PerPlatform["youtube"])
	assert.Equal(t, int64(1), stats.PerPlatform["tiktok"])

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestListings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testRecord("https://example.com/v/1", "youtube", "v1", "A")
	a.Collection = "lectures"
	b := testRecord("https://example.com/v/2", "tiktok", "v2", "B")
	b.Uploader = "dancer"
	for _, r := range []*models.MediaRecord{a, b} {
		require.NoError(t, store.Insert(ctx, r))
	}

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	byPlatform, err := store.ByPlatform(ctx, "tiktok", 10)
	require.NoError(t, err)
	require.Len(t, byPlatform, 1)
	assert.Equal(t, "B", byPlatform[0].Title)

	byUploader, err := store.ByUploader(ctx, "dancer", 10)
	require.NoError(t, err)
	assert.Len(t, byUploader, 1)

	byCollection, err := store.ByCollection(ctx, "lectures", 10)
	require.NoError(t, err)
	require.Len(t, byCollection, 1)
	assert.Equal(t, "A", byCollection[0].Title)

	uploaders, err := store.Uploaders(ctx)
	require.NoError(t, err)
	assert.Len(t, uploaders, 2)
}
