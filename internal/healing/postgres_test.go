package healing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testforge/pomsuite/internal/browser"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupTestDB(t)
	store := NewPostgresStore(db)
	ctx := context.Background()
	key := Key{Page: "/login", Locator: browser.ID("login")}
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Health", func(t *testing.T) {
		assert.NoError(t, store.Health(ctx))
	})

	t.Run("Save_Upserts", func(t *testing.T) {
		truncateTables(t, db)

		require.NoError(t, store.Save(ctx, key, []Candidate{
			{Locator: browser.ClassName("radius"), Score: ScoreClass, UpdatedAt: t0},
			{Locator: browser.TestID("login-submit"), Score: ScoreTestID, UpdatedAt: t0},
		}))
		require.NoError(t, store.Save(ctx, key, []Candidate{
			{Locator: browser.ClassName("radius"), Score: 0.99, UpdatedAt: t0.Add(time.Hour)},
		}))

		cs, err := store.Candidates(ctx, key)
		require.NoError(t, err)
		require.Len(t, cs, 2)
		assert.Equal(t, browser.ClassName("radius"), cs[0].Locator)
		assert.Equal(t, 0.99, cs[0].Score)
		assert.Equal(t, browser.TestID("login-submit"), cs[1].Locator)
	})

	t.Run("Candidates_OtherKey", func(t *testing.T) {
		truncateTables(t, db)

		require.NoError(t, store.Save(ctx, key, []Candidate{{Locator: browser.Name("login"), Score: ScoreName}}))

		cs, err := store.Candidates(ctx, Key{Page: "/secure", Locator: browser.ID("login")})
		require.NoError(t, err)
		assert.Empty(t, cs)
	})

	t.Run("Events", func(t *testing.T) {
		truncateTables(t, db)

		first := NewEvent(key, Candidate{Locator: browser.Name("login"), Score: ScoreName}, "http://app.test/login")
		first.CreatedAt = t0
		second := NewEvent(key, Candidate{Locator: browser.TestID("login-submit"), Score: ScoreTestID}, "http://app.test/login")
		second.CreatedAt = t0.Add(time.Minute)

		require.NoError(t, store.RecordHeal(ctx, first))
		require.NoError(t, store.RecordHeal(ctx, second))

		events, err := store.Events(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, second.ID, events[0].ID)
		assert.Equal(t, key, events[0].Key)
		assert.Equal(t, browser.TestID("login-submit"), events[0].Healed)

		limited, err := store.Events(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

func TestCachedStore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := setupTestRedis(t)
	inner := NewMemoryStore()
	store := NewCachedStore(inner, client, time.Minute, nil)
	ctx := context.Background()
	key := Key{Page: "/login", Locator: browser.ID("login")}

	require.NoError(t, store.Save(ctx, key, []Candidate{{Locator: browser.Name("login"), Score: ScoreName}}))

	cs, err := store.Candidates(ctx, key)
	require.NoError(t, err)
	require.Len(t, cs, 1)

	exists, err := client.Exists(ctx, cacheKey(key)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "read populates the cache")

	// A write through the cache invalidates the entry
	require.NoError(t, store.Save(ctx, key, []Candidate{{Locator: browser.TestID("login"), Score: ScoreTestID}}))
	exists, err = client.Exists(ctx, cacheKey(key)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	cs, err = store.Candidates(ctx, key)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, browser.TestID("login"), cs[0].Locator)
}

func TestCachedStore_RedisDownFallsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := setupTestRedis(t)
	inner := NewMemoryStore()
	store := NewCachedStore(inner, client, time.Minute, nil)
	ctx := context.Background()
	key := Key{Page: "/", Locator: browser.ID("x")}
	require.NoError(t, inner.Save(ctx, key, []Candidate{{Locator: browser.Name("x"), Score: ScoreName}}))

	require.NoError(t, client.Close())

	cs, err := store.Candidates(ctx, key)
	require.NoError(t, err)
	assert.Len(t, cs, 1)
}
