package mission

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elliotttmiller/sentinel/internal/database"
	"github.com/elliotttmiller/sentinel/internal/types"
)

// storeFactories lets every store test run against both implementations.
func storeFactories(t *testing.T) map[string]func(t *testing.T) MissionStore {
	return map[string]func(t *testing.T) MissionStore{
		"memory": func(t *testing.T) MissionStore {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) MissionStore {
			db, err := database.Open(filepath.Join(t.TempDir(), "sentinel.db"))
			require.NoError(t, err)
			require.NoError(t, db.Migrate(context.Background()))
			t.Cleanup(func() { _ = db.Close() })
			return NewSQLiteStore(db)
		},
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			m := NewMission("m1", "build a parser", "coder")
			require.NoError(t, store.Save(ctx, m))

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, "m1", got.ID)
			assert.Equal(t, "build a parser", got.Prompt)
			assert.Equal(t, StatusPending, got.Status)
			assert.Nil(t, got.Result)
			assert.Nil(t, got.StartedAt)

			// Duplicate save is rejected.
			assert.Error(t, store.Save(ctx, NewMission("m1", "other", "coder")))

			_, err = store.Get(ctx, "missing")
			assert.True(t, types.HasCode(err, types.MISSION_NOT_FOUND))
		})
	}
}

func TestStoreUpdateStatusLifecycle(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, NewMission("m1", "prompt", "coder")))

			five := 5
			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusRunning, StatusFields{Progress: &five}))

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, StatusRunning, got.Status)
			assert.Equal(t, 5, got.Progress)
			require.NotNil(t, got.StartedAt)

			// Healing cycle with attempt/prompt mutation.
			failure := "tool crashed"
			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusHealing, StatusFields{ErrorMessage: &failure}))

			one := 1
			healed := "healed prompt"
			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusRunning, StatusFields{
				AttemptCount:  &one,
				CurrentPrompt: &healed,
				Progress:      &five,
			}))

			got, err = store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, 1, got.AttemptCount)
			assert.Equal(t, "healed prompt", got.CurrentPrompt)
			assert.Equal(t, "prompt", got.Prompt, "original prompt is immutable")
			require.NotNil(t, got.ErrorMessage)
			assert.Equal(t, "tool crashed", *got.ErrorMessage)

			result := `{"summary":"done"}`
			hundred := 100
			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusCompleted, StatusFields{
				Progress: &hundred,
				Result:   &result,
			}))

			got, err = store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, got.Status)
			assert.Equal(t, 100, got.Progress)
			require.NotNil(t, got.Result)
			assert.Equal(t, result, *got.Result)
			require.NotNil(t, got.CompletedAt)
		})
	}
}

func TestStoreRejectsInvalidTransitions(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, NewMission("m1", "prompt", "coder")))

			// pending -> completed skips running.
			err := store.UpdateStatus(ctx, "m1", StatusCompleted, StatusFields{})
			assert.True(t, types.HasCode(err, types.MISSION_INVALID))

			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusRunning, StatusFields{}))
			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusFailed, StatusFields{}))

			// Terminal missions are immutable.
			err = store.UpdateStatus(ctx, "m1", StatusRunning, StatusFields{})
			assert.True(t, types.HasCode(err, types.MISSION_TERMINAL))

			err = store.UpdateProgress(ctx, "m1", 50)
			assert.True(t, types.HasCode(err, types.MISSION_TERMINAL))
		})
	}
}

func TestStoreUpdateProgress(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, NewMission("m1", "prompt", "coder")))
			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusRunning, StatusFields{}))

			require.NoError(t, store.UpdateProgress(ctx, "m1", 50))

			got, err := store.Get(ctx, "m1")
			require.NoError(t, err)
			assert.Equal(t, 50, got.Progress)

			err = store.UpdateProgress(ctx, "missing", 10)
			assert.True(t, types.HasCode(err, types.MISSION_NOT_FOUND))
		})
	}
}

func TestStoreListAndCount(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, NewMission("m1", "prompt one", "coder")))
			require.NoError(t, store.Save(ctx, NewMission("m2", "prompt two", "coder")))
			require.NoError(t, store.Save(ctx, NewMission("m3", "prompt three", "reviewer")))
			require.NoError(t, store.UpdateStatus(ctx, "m2", StatusRunning, StatusFields{}))

			all, err := store.List(ctx, nil)
			require.NoError(t, err)
			assert.Len(t, all, 3)

			pending := StatusPending
			filtered, err := store.List(ctx, &Filter{Status: &pending})
			require.NoError(t, err)
			assert.Len(t, filtered, 2)

			coder := "coder"
			n, err := store.Count(ctx, &Filter{AgentType: &coder})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			limited, err := store.List(ctx, &Filter{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestStoreGetActive(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, NewMission("m1", "prompt", "coder")))
			require.NoError(t, store.Save(ctx, NewMission("m2", "prompt", "coder")))
			require.NoError(t, store.UpdateStatus(ctx, "m2", StatusRunning, StatusFields{}))
			require.NoError(t, store.UpdateStatus(ctx, "m2", StatusCompleted, StatusFields{}))

			active, err := store.GetActive(ctx)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, "m1", active[0].ID)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			require.NoError(t, store.Save(ctx, NewMission("m1", "prompt", "coder")))

			// Non-terminal missions cannot be deleted.
			assert.Error(t, store.Delete(ctx, "m1"))

			require.NoError(t, store.UpdateStatus(ctx, "m1", StatusCancelled, StatusFields{}))
			require.NoError(t, store.Delete(ctx, "m1"))

			_, err := store.Get(ctx, "m1")
			assert.True(t, types.HasCode(err, types.MISSION_NOT_FOUND))
		})
	}
}
