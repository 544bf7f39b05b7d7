package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/boomerang/internal/config"
	"github.com/dandantas/boomerang/internal/database"
	"github.com/dandantas/boomerang/internal/model"
)

// seededOpener returns an opener over a fresh in-memory store holding one
// recent processing job and one old completed job
func seededOpener(t *testing.T) StoreOpener {
	t.Helper()

	return func(ctx context.Context) (database.JobStore, error) {
		store, err := database.OpenBadger(config.BadgerConfig{InMemory: true})
		require.NoError(t, err)

		_, err = store.Create(ctx, model.NewJob("fresh", "https://instagram.com/p/1", "", time.Now()))
		require.NoError(t, err)
		_, err = store.Create(ctx, model.NewJob("stale", "https://instagram.com/p/2", "", time.Now().AddDate(0, 0, -30)))
		require.NoError(t, err)
		_, _, err = store.CompleteTerminal(ctx, "stale", model.JobCompletion{
			Status:  model.StatusCompleted,
			Results: &model.JobResults{Items: []string{"a"}, ItemCount: 1},
		})
		require.NoError(t, err)
		return store, nil
	}
}

func run(t *testing.T, open StoreOpener, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCmd(open)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestJobsList(t *testing.T) {
	out, err := run(t, seededOpener(t), "jobs", "list", "--status", "completed")
	require.NoError(t, err)

	var output jobListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &output))
	require.Equal(t, 1, output.Total)
	assert.Equal(t, "stale", output.Jobs[0].JobID)
	require.NotNil(t, output.Jobs[0].TotalItems)
	assert.Equal(t, 1, *output.Jobs[0].TotalItems)
}

func TestJobsListRejectsUnknownStatus(t *testing.T) {
	_, err := run(t, seededOpener(t), "jobs", "list", "-s", "pending")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestJobsGet(t *testing.T) {
	out, err := run(t, seededOpener(t), "jobs", "get", "fresh")
	require.NoError(t, err)

	var view model.JobView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, model.StatusProcessing, view.Status)

	_, err = run(t, seededOpener(t), "jobs", "get", "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPurge(t *testing.T) {
	out, err := run(t, seededOpener(t), "purge", "--older-than-days", "7")
	require.NoError(t, err)
	assert.JSONEq(t, `{"olderThanDays":7,"removed":1}`, out)

	_, err = run(t, seededOpener(t), "purge", "--older-than-days=-1")
	assert.Error(t, err)
}

func TestOpenFailure(t *testing.T) {
	failing := func(context.Context) (database.JobStore, error) {
		return nil, errors.New("connection refused")
	}

	_, err := run(t, failing, "jobs", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error opening job store")
}
