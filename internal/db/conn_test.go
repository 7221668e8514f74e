package db

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory and database", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "subdir", "test.db")

		ctx := context.Background()
		store, err := NewStore(ctx, dbPath)
		require.NoError(t, err)
		defer store.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)

		var result int
		err = store.GetContext(ctx, &result, "SELECT 1")
		assert.NoError(t, err)
		assert.Equal(t, 1, result)
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("sets WAL mode", func(t *testing.T) {
		ctx := context.Background()
		store, err := NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		defer store.Close()

		var mode string
		err = store.GetContext(ctx, &mode, "PRAGMA journal_mode")
		assert.NoError(t, err)
		assert.Equal(t, "wal", mode)
	})
}

func TestStore_Migrate(t *testing.T) {
	t.Run("applies migrations", func(t *testing.T) {
		store := NewTestStore(t)
		ctx := context.Background()

		for _, table := range []string{"stories", "sequences"} {
			var name string
			err := store.GetContext(ctx, &name,
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
			assert.NoError(t, err)
			assert.Equal(t, table, name)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := NewTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Migrate(ctx))

		count, err := store.CountStories(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}

func TestExtractUpMigration(t *testing.T) {
	t.Run("extracts up portion", func(t *testing.T) {
		content := `-- +migrate Up
CREATE TABLE test (id INTEGER);

-- +migrate Down
DROP TABLE test;
`
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})

	t.Run("handles no down marker", func(t *testing.T) {
		content := "CREATE TABLE test (id INTEGER);"
		assert.Equal(t, "CREATE TABLE test (id INTEGER);", extractUpMigration(content))
	})
}

func TestStore_CreateStory(t *testing.T) {
	t.Run("assigns sequential ids", func(t *testing.T) {
		store := NewTestStore(t)
		ctx := context.Background()

		first, err := store.CreateStory(ctx, CreateStoryParams{Plot: "A doctor hunts.", StoryText: "One."})
		require.NoError(t, err)
		second, err := store.CreateStory(ctx, CreateStoryParams{Plot: "A detective waits.", StoryText: "Two."})
		require.NoError(t, err)

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Equal(t, first.CreatedAt, first.UpdatedAt)
	})

	t.Run("concurrent creates get unique ids", func(t *testing.T) {
		store := NewTestStore(t)
		ctx := context.Background()

		const n = 20
		ids := make(chan int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s, err := store.CreateStory(ctx, CreateStoryParams{Plot: "p"})
				if assert.NoError(t, err) {
					ids <- s.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[int64]bool{}
		for id := range ids {
			assert.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}
		assert.Len(t, seen, n)
		for i := int64(1); i <= n; i++ {
			assert.True(t, seen[i], "missing id %d", i)
		}
	})
}

func TestStore_Queries(t *testing.T) {
	store := NewTestStore(t)
	ctx := context.Background()

	_, err := store.CreateStory(ctx, CreateStoryParams{
		BookBasedStory: "Red Dragon (1981)",
		StoryText:      "Тьма. Шёпот.",
		Plot:           "First plot.",
		Inspiration:    "Thomas Harris",
		SeedQuote:      "Всё, что нас не убивает...",
	})
	require.NoError(t, err)
	_, err = store.CreateStory(ctx, CreateStoryParams{StoryText: "Second.", Plot: "Second plot."})
	require.NoError(t, err)

	t.Run("list plots newest first", func(t *testing.T) {
		plots, err := store.ListPlots(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Second plot.", "First plot."}, plots)
	})

	t.Run("list stories newest first", func(t *testing.T) {
		stories, err := store.ListStories(ctx)
		require.NoError(t, err)
		require.Len(t, stories, 2)
		assert.Equal(t, int64(2), stories[0].ID)
		assert.Equal(t, int64(1), stories[1].ID)
	})

	t.Run("get story", func(t *testing.T) {
		s, err := store.GetStory(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Red Dragon (1981)", s.BookBasedStory)
		assert.Equal(t, "Тьма. Шёпот.", s.Text())
		assert.Equal(t, "Thomas Harris", s.Inspiration)
		assert.Equal(t, "Всё, что нас не убивает...", s.SeedQuote)
	})

	t.Run("get missing story", func(t *testing.T) {
		_, err := store.GetStory(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("count", func(t *testing.T) {
		n, err := store.CountStories(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestListPlots_Empty(t *testing.T) {
	store := NewTestStore(t)
	plots, err := store.ListPlots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plots)
	assert.NotNil(t, plots)
}

// NewTestStore provides a migrated test database.
func NewTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	ctx := context.Background()
	store, err := NewStore(ctx, dbPath)
	require.NoError(t, err)

	err = store.Migrate(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
