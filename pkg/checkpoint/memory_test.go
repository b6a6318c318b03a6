package checkpoint

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContract(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestMemoryCopiesOnSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	cp := &Checkpoint{
		SessionID: "sess-1",
		NextStage: "topic",
		State:     json.RawMessage(`{"topic_index":0}`),
		SavedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.Save(ctx, "sess-1", cp))

	// Mutating the saved value must not reach the store.
	cp.NextStage = "feedback"
	cp.State[2] = 'X'

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "topic", loaded.NextStage)
	assert.JSONEq(t, `{"topic_index":0}`, string(loaded.State))

	// Mutating a loaded value must not reach the store either.
	loaded.State[2] = 'Y'
	again, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"topic_index":0}`, string(again.State))
}

func TestMemoryConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	done := make(chan struct{})
	for _, id := range []string{"a", "b", "c", "d"} {
		go func(id string) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				cp := &Checkpoint{SessionID: id, NextStage: "topic", State: json.RawMessage(`{}`), SavedAt: time.Now().UTC()}
				if err := store.Save(ctx, id, cp); err != nil {
					t.Errorf("save %s: %v", id, err)
					return
				}
				if _, err := store.Load(ctx, id); err != nil {
					t.Errorf("load %s: %v", id, err)
					return
				}
			}
		}(id)
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 4)
}
