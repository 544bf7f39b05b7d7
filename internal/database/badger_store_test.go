package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := OpenBadger(config.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestBadgerStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestBadger(t)

	job := model.NewJob("abc123", "https://instagram.com/p/1", "cookie", time.Now())
	summary, err := store.Create(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, model.JobSummary{ID: "abc123", Status: model.StatusProcessing}, summary)

	got, found, err := store.Get(ctx, "abc123")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, job.Target, got.Target)
	assert.Equal(t, "cookie", got.Credential)
	assert.Equal(t, model.StatusProcessing, got.Status)
	assert.Nil(t, got.Results)
	assert.Nil(t, got.CompletedAt)

	_, found, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBadgerStore_CreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestBadger(t)

	_, err := store.Create(ctx, model.NewJob("dup", "https://instagram.com/a", "", time.Now()))
	require.NoError(t, err)

	_, err = store.Create(ctx, model.NewJob("dup", "https://instagram.com/b", "", time.Now()))
	require.ErrorIs(t, err, model.ErrDuplicateKey)

	got, _, err := store.Get(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "https://instagram.com/a", got.Target, "existing row must not be overwritten")
}

func TestBadgerStore_CompleteTerminal(t *testing.T) {
	ctx := context.Background()
	store := newTestBadger(t)

	_, err := store.Create(ctx, model.NewJob("job-1", "https://instagram.com/p/1", "", time.Now()))
	require.NoError(t, err)

	completion := model.JobCompletion{
		Status:  model.StatusCompleted,
		Results: &model.JobResults{Items: []string{"a", "b"}, ItemCount: 2},
	}

	t.Run("first call transitions", func(t *testing.T) {
		summary, matched, err := store.CompleteTerminal(ctx, "job-1", completion)
		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, model.StatusCompleted, summary.Status)
	})

	first, _, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	t.Run("second call is a no-op", func(t *testing.T) {
		_, matched, err := store.CompleteTerminal(ctx, "job-1", model.JobCompletion{
			Status:       model.StatusFailed,
			ErrorMessage: "late failure",
		})
		require.NoError(t, err)
		assert.False(t, matched)

		again, _, err := store.Get(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("unknown id is not matched", func(t *testing.T) {
		_, matched, err := store.CompleteTerminal(ctx, "nope", completion)
		require.NoError(t, err)
		assert.False(t, matched)

		_, found, err := store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("non terminal completion is rejected", func(t *testing.T) {
		_, _, err := store.CompleteTerminal(ctx, "job-1", model.JobCompletion{Status: model.StatusProcessing})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func TestBadgerStore_ConcurrentCompleteMatchesOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestBadger(t)

	_, err := store.Create(ctx, model.NewJob("race", "https://instagram.com/p/1", "", time.Now()))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		matches int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, matched, err := store.CompleteTerminal(ctx, "race", model.JobCompletion{
				Status:       model.StatusFailed,
				ErrorMessage: "boom",
			})
			if err == nil && matched {
				mu.Lock()
				matches++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, matches)
}

func TestBadgerStore_ListByStatusNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestBadger(t)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		_, err := store.Create(ctx, model.NewJob(id, "https://instagram.com/p", "", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, _, err := store.CompleteTerminal(ctx, "mid", model.JobCompletion{Status: model.StatusFailed, ErrorMessage: "x"})
	require.NoError(t, err)

	processing, err := store.ListByStatus(ctx, model.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 2)
	assert.Equal(t, "new", processing[0].ID)
	assert.Equal(t, "old", processing[1].ID)

	completed, err := store.ListByStatus(ctx, model.StatusCompleted)
	require.NoError(t, err)
	assert.Empty(t, completed)
	assert.NotNil(t, completed)
}

func TestBadgerStore_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	store := newTestBadger(t)

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	seed := []struct {
		id  string
		age time.Duration
	}{
		{"ancient-processing", 30 * 24 * time.Hour},
		{"ancient-completed", 8 * 24 * time.Hour},
		{"just-over", 7*24*time.Hour + time.Minute},
		{"just-under", 7*24*time.Hour - time.Minute},
		{"fresh", time.Hour},
	}
	for _, s := range seed {
		_, err := store.Create(ctx, model.NewJob(s.id, "https://instagram.com/p", "", now.Add(-s.age)))
		require.NoError(t, err)
	}
	_, _, err := store.CompleteTerminal(ctx, "ancient-completed", model.JobCompletion{Status: model.StatusCompleted})
	require.NoError(t, err)

	removed, err := store.PurgeOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	for _, id := range []string{"ancient-processing", "ancient-completed", "just-over"} {
		_, found, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, found, id)
	}
	for _, id := range []string{"just-under", "fresh"} {
		_, found, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, found, id)
	}

	removed, err = store.PurgeOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = store.PurgeOlderThan(ctx, -1)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestBadgerStore_PingAndClose(t *testing.T) {
	store, err := OpenBadger(config.BadgerConfig{InMemory: true})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close(ctx))
	assert.ErrorIs(t, store.Ping(ctx), model.ErrStorageFailure)
	assert.NoError(t, store.Close(ctx))
}

func TestOpenBadgerOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(ctx, &config.Config{
		StoreDriver: config.DriverBadger,
		Badger:      config.BadgerConfig{Dir: dir},
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, model.NewJob("persisted", "https://instagram.com/p", "", time.Now()))
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))

	reopened, err := OpenBadger(config.BadgerConfig{Dir: dir})
	require.NoError(t, err)
	defer reopened.Close(ctx)

	_, found, err := reopened.Get(ctx, "persisted")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid STORE_DRIVER")
}
