package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File implements Store with one JSON file per session under a base
// directory. Writes go to a temp file in the same directory and are
// renamed into place, so a reader never observes a partial checkpoint.
type File struct {
	baseDir string
}

// NewFile creates a file store rooted at baseDir, creating the
// directory if needed.
func NewFile(baseDir string) (*File, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory %s: %w", baseDir, err)
	}
	return &File{baseDir: baseDir}, nil
}

// Save writes the checkpoint atomically.
func (s *File) Save(_ context.Context, sessionID string, cp *Checkpoint) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint for session %s: %w", sessionID, err)
	}

	// The temp file lives in the target directory so the rename stays
	// on one filesystem and is atomic.
	tmp, err := os.CreateTemp(s.baseDir, ".tmp-"+sessionID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write checkpoint for session %s: %w", sessionID, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync checkpoint for session %s: %w", sessionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(sessionID)); err != nil {
		return fmt.Errorf("failed to store checkpoint for session %s: %w", sessionID, err)
	}
	return nil
}

// Load reads the checkpoint file for a session.
func (s *File) Load(_ context.Context, sessionID string) (*Checkpoint, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read checkpoint for session %s: %w", sessionID, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint for session %s: %w", sessionID, err)
	}
	return &cp, nil
}

// Delete removes the checkpoint file.
func (s *File) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint for session %s: %w", sessionID, err)
	}
	return nil
}

// List returns all session IDs with a checkpoint file.
func (s *File) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}

func (s *File) path(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID+".json")
}
