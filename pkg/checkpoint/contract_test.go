package checkpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract verifies that a Store implementation honors the
// interface contract. Every implementation in this package runs it.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000")

	t.Run("SaveAndLoad", func(t *testing.T) {
		cp := &Checkpoint{
			SavedAt:   time.Now().UTC(),
			SessionID: sessionID,
			NextStage: "answer_validation",
			State:     json.RawMessage(`{"topic_index":2,"waiting_for_user":true}`),
		}

		require.NoError(t, store.Save(ctx, sessionID, cp))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, "answer_validation", loaded.NextStage)
		assert.JSONEq(t, `{"topic_index":2,"waiting_for_user":true}`, string(loaded.State))
		assert.WithinDuration(t, cp.SavedAt, loaded.SavedAt, time.Second)
	})

	t.Run("Overwrite", func(t *testing.T) {
		first := &Checkpoint{SessionID: sessionID, NextStage: "topic", State: json.RawMessage(`{"n":1}`), SavedAt: time.Now().UTC()}
		second := &Checkpoint{SessionID: sessionID, NextStage: "probing", State: json.RawMessage(`{"n":2}`), SavedAt: time.Now().UTC()}

		require.NoError(t, store.Save(ctx, sessionID, first))
		require.NoError(t, store.Save(ctx, sessionID, second))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "probing", loaded.NextStage)
		assert.JSONEq(t, `{"n":2}`, string(loaded.State))
	})

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("KeyIsolation", func(t *testing.T) {
		idA := sessionID + "-a"
		idB := sessionID + "-b"
		require.NoError(t, store.Save(ctx, idA, &Checkpoint{SessionID: idA, NextStage: "topic", State: json.RawMessage(`{"who":"a"}`), SavedAt: time.Now().UTC()}))
		require.NoError(t, store.Save(ctx, idB, &Checkpoint{SessionID: idB, NextStage: "feedback", State: json.RawMessage(`{"who":"b"}`), SavedAt: time.Now().UTC()}))
		defer func() {
			_ = store.Delete(ctx, idA)
			_ = store.Delete(ctx, idB)
		}()

		a, err := store.Load(ctx, idA)
		require.NoError(t, err)
		b, err := store.Load(ctx, idB)
		require.NoError(t, err)
		assert.JSONEq(t, `{"who":"a"}`, string(a.State))
		assert.JSONEq(t, `{"who":"b"}`, string(b.State))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, &Checkpoint{SessionID: id1, NextStage: "topic", SavedAt: time.Now().UTC(), State: json.RawMessage(`{}`)}))
		require.NoError(t, store.Save(ctx, id2, &Checkpoint{SessionID: id2, NextStage: "topic", SavedAt: time.Now().UTC(), State: json.RawMessage(`{}`)}))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, &Checkpoint{SessionID: sessionID, NextStage: "topic", SavedAt: time.Now().UTC(), State: json.RawMessage(`{}`)}))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, ErrNotFound)

		// Deleting an absent session is a no-op.
		assert.NoError(t, store.Delete(ctx, sessionID))
	})
}
