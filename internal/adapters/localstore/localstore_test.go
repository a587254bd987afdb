package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labflow/internal/domain"
	"labflow/internal/ports"
)

func TestReminderStoreEmptyOnMissingFile(t *testing.T) {
	store := NewReminderStore(t.TempDir())

	reminders, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, reminders)
}

func TestReminderStoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewReminderStore(root)

	target := time.Now().UTC().Truncate(time.Second)
	in := []domain.Reminder{
		{ID: "r1", Title: "Experiment Step Reminder", Message: "Incubate", TargetTime: target, ExperimentID: "exp-1", StepIndex: 1},
		{ID: "r2", Title: "Experiment Step Reminder", Message: "Check viability", TargetTime: target.Add(time.Hour), ExperimentID: "exp-1", StepIndex: 2, Shown: true},
	}
	require.NoError(t, store.Save(in))

	// A fresh store over the same root sees the persisted set.
	out, err := NewReminderStore(root).Load()
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in, out)
}

func TestExperimentStoreLifecycle(t *testing.T) {
	root := t.TempDir()
	store, err := NewExperimentStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	exp := &domain.Experiment{
		ID:        "exp-1",
		Title:     "Transfection",
		CreatedAt: time.Now().UTC(),
		Steps: []domain.Step{
			{Description: "Seed cells"},
			{Description: "Add reagent"},
			{Description: "Incubate overnight"},
		},
	}
	require.NoError(t, store.Create(ctx, exp))

	now := time.Now().UTC()
	require.NoError(t, store.CompleteStep(ctx, "exp-1", 0, now))
	require.NoError(t, store.CompleteStep(ctx, "exp-1", 1, now))
	// Repeat completion is a no-op.
	require.NoError(t, store.CompleteStep(ctx, "exp-1", 1, now.Add(time.Hour)))

	got, err := store.GetByID(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, 67, got.Progress)
	assert.True(t, got.Steps[0].Completed)
	assert.Nil(t, got.CompletedAt)

	// Reopen from disk: state survives.
	reopened, err := NewExperimentStore(root)
	require.NoError(t, err)
	got, err = reopened.GetByID(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, 67, got.Progress)

	require.NoError(t, reopened.CompleteStep(ctx, "exp-1", 2, now))
	got, err = reopened.GetByID(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)

	require.NoError(t, reopened.Delete(ctx, "exp-1"))
	_, err = reopened.GetByID(ctx, "exp-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, reopened.Delete(ctx, "exp-1"), domain.ErrNotFound)
}

func TestExperimentStoreListNewestFirst(t *testing.T) {
	store, err := NewExperimentStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"exp-a", "exp-b", "exp-c"} {
		require.NoError(t, store.Create(ctx, &domain.Experiment{
			ID:        id,
			Title:     id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Steps:     []domain.Step{{Description: "step"}},
		}))
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "exp-c", all[0].ID)
	assert.Equal(t, "exp-a", all[2].ID)
}

func TestExperimentStoreUpdate(t *testing.T) {
	store, err := NewExperimentStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &domain.Experiment{
		ID:        "exp-1",
		Title:     "Before",
		CreatedAt: time.Now().UTC(),
		Steps:     []domain.Step{{Description: "step"}},
	}))

	title := "After"
	require.NoError(t, store.Update(ctx, "exp-1", ports.ExperimentUpdate{Title: &title}))

	got, err := store.GetByID(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)

	assert.ErrorIs(t, store.Update(ctx, "nope", ports.ExperimentUpdate{Title: &title}), domain.ErrNotFound)
}
