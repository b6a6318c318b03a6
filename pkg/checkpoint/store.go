// Package checkpoint persists interview session snapshots between stage
// transitions. Stores are keyed by session ID; distinct sessions never
// interfere, and a write to one key is atomic relative to reads of that
// key so a resumed session always sees a complete snapshot.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for a session.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is one durable snapshot of a session. NextStage names the
// stage the engine enters when execution continues from this snapshot;
// State carries the serialized session state as the engine defined it.
type Checkpoint struct {
	SavedAt   time.Time       `json:"saved_at"`
	SessionID string          `json:"session_id"`
	NextStage string          `json:"next_stage"`
	State     json.RawMessage `json:"state"`
}

// Clone returns a deep copy so callers cannot mutate a persisted
// snapshot through shared references.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	cp := *c
	if c.State != nil {
		cp.State = append(json.RawMessage(nil), c.State...)
	}
	return &cp
}

// Store is the persistence port for session checkpoints. The engine
// writes a checkpoint after every stage transition and loads one to
// resume a suspended session.
type Store interface {
	// Save persists the checkpoint under the given session ID,
	// replacing any previous snapshot for that session.
	Save(ctx context.Context, sessionID string, cp *Checkpoint) error

	// Load retrieves the latest checkpoint for a session.
	// Returns ErrNotFound if the session has never been saved.
	Load(ctx context.Context, sessionID string) (*Checkpoint, error)

	// Delete removes a session's checkpoint. Deleting a session that
	// does not exist is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all sessions with a stored checkpoint.
	List(ctx context.Context) ([]string, error)
}
