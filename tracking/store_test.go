package tracking

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"twitter-notifier/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertAndSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "Bob", RoleID: "r1", LatestTweet: "100",
	}))
	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "alice", LatestTweet: "200",
	}))

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Snapshot order is guild, channel, handle; handles are lowercased.
	assert.Equal(t, "alice", entries[0].Handle)
	assert.Equal(t, "bob", entries[1].Handle)
	assert.Equal(t, "r1", entries[1].RoleID)
	assert.Equal(t, "100", entries[1].LatestTweet)
	assert.NotZero(t, entries[0].AddedAt)
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "bob", RoleID: "r1", LatestTweet: "100",
	}))
	// Re-adding resets the watermark and routing.
	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "BOB", LatestTweet: "105",
	}))

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "105", entries[0].LatestTweet)
	assert.Empty(t, entries[0].RoleID)
}

func TestCompareAndSetWatermark(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "bob", LatestTweet: "100",
	}))

	// Matching expectation advances the watermark.
	require.NoError(t, store.CompareAndSetWatermark(ctx, "g1", "c1", "bob", "100", "101"))

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "101", entries[0].LatestTweet)

	// A stale expectation is a conflict and must not mutate.
	err = store.CompareAndSetWatermark(ctx, "g1", "c1", "bob", "100", "102")
	assert.ErrorIs(t, err, ErrWatermarkConflict)

	entries, err = store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "101", entries[0].LatestTweet)

	// A missing key is distinct from a conflict.
	err = store.CompareAndSetWatermark(ctx, "g1", "c1", "carol", "100", "101")
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestCompareAndSetWatermarkEmptyOld(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Never-observed entries have an empty watermark.
	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "bob",
	}))
	require.NoError(t, store.CompareAndSetWatermark(ctx, "g1", "c1", "bob", "", "100"))

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", entries[0].LatestTweet)
}

func TestCompareAndSetWatermarkRace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "bob", LatestTweet: "100",
	}))

	// Two concurrent updaters with the same expectation: exactly one wins.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for n := range results {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = store.CompareAndSetWatermark(ctx, "g1", "c1", "bob", "100", "101")
		}(n)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrWatermarkConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "101", entries[0].LatestTweet)
}

func TestRemove(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.Tracked{
		GuildID: "g1", ChannelID: "c1", Handle: "bob",
	}))

	require.NoError(t, store.Remove(ctx, "g1", "c1", "BOB"))
	assert.ErrorIs(t, store.Remove(ctx, "g1", "c1", "bob"), ErrNotTracked)

	entries, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListChannel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, models.Tracked{GuildID: "g1", ChannelID: "c1", Handle: "bob"}))
	require.NoError(t, store.Upsert(ctx, models.Tracked{GuildID: "g1", ChannelID: "c2", Handle: "alice"}))
	require.NoError(t, store.Upsert(ctx, models.Tracked{GuildID: "g2", ChannelID: "c1", Handle: "carol"}))

	entries, err := store.ListChannel(ctx, "g1", "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bob", entries[0].Handle)

	entries, err = store.ListChannel(ctx, "g1", "c3")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "bob", NormalizeHandle("  @Bob "))
	assert.Equal(t, "alice", NormalizeHandle("ALICE"))
	assert.Equal(t, "alice", NormalizeHandle("alice"))
}
