// Package eventlog provides a durable JSONL transcript of interview
// sessions: every question, answer, decision, and lifecycle change is
// appended to a daily-rotated log file.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry kinds written by the engine.
const (
	KindQuestion  = "question"
	KindAnswer    = "answer"
	KindDecision  = "decision"
	KindFeedback  = "feedback"
	KindLifecycle = "lifecycle"
)

// Entry is one transcript event for a session.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Stage     string         `json:"stage"`
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEntry creates an entry stamped with the current UTC time.
func NewEntry(sessionID, stage, kind string) *Entry {
	return &Entry{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Stage:     stage,
		Kind:      kind,
		Data:      make(map[string]any),
	}
}

// SetData attaches a payload field to the entry.
func (e *Entry) SetData(key string, value any) *Entry {
	e.Data[key] = value
	return e
}

// ToJSON serializes the entry to a single JSON document.
func (e *Entry) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return data, nil
}

// FromJSON parses a single JSON document into an entry.
func FromJSON(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}

// Writer appends entries to daily rotated JSONL files.
type Writer struct {
	logDir      string
	currentFile *os.File
	currentDate string
	mu          sync.Mutex
}

// NewWriter creates a writer rooted at logDir, creating the directory
// and the current day's file.
func NewWriter(logDir string) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &Writer{logDir: logDir}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}
	return w, nil
}

// WriteEntry appends one entry to the current log file, rotating first
// when the day has changed.
func (w *Writer) WriteEntry(e *Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	data, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize entry: %w", err)
	}

	if _, err := w.currentFile.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if _, err := w.currentFile.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

func (w *Writer) rotateIfNeeded() error {
	newDate := time.Now().Format("2006-01-02")
	if w.currentFile == nil || w.currentDate != newDate {
		return w.rotate(newDate)
	}
	return nil
}

func (w *Writer) rotate(newDate string) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
	}

	path := filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", newDate))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	w.currentFile = file
	w.currentDate = newDate
	return nil
}

// Close closes the current log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile != nil {
		err := w.currentFile.Close()
		w.currentFile = nil
		if err != nil {
			return fmt.Errorf("failed to close event log file: %w", err)
		}
	}
	return nil
}

// GetCurrentLogFile returns the path of the currently active log file.
func (w *Writer) GetCurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return ""
	}
	return filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", w.currentDate))
}

// ReadEntries reads and parses all entries from a specific log file.
func ReadEntries(logFilePath string) ([]*Entry, error) {
	data, err := os.ReadFile(logFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	if len(data) == 0 {
		return []*Entry{}, nil
	}

	var entries []*Entry
	line := []byte{}
	for _, b := range data {
		if b == '\n' {
			if len(line) > 0 {
				e, err := FromJSON(line)
				if err != nil {
					return nil, fmt.Errorf("failed to parse entry: %w", err)
				}
				entries = append(entries, e)
				line = []byte{}
			}
			continue
		}
		line = append(line, b)
	}
	if len(line) > 0 {
		e, err := FromJSON(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse final entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ListLogFiles returns all event log files in the log directory.
func ListLogFiles(logDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(logDir, "events-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}

// ReadSessionEntries collects every entry for one session across all
// log files in the directory, oldest file first.
func ReadSessionEntries(logDir, sessionID string) ([]*Entry, error) {
	files, err := ListLogFiles(logDir)
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for _, file := range files {
		all, err := ReadEntries(file)
		if err != nil {
			return nil, err
		}
		for _, e := range all {
			if e.SessionID == sessionID {
				entries = append(entries, e)
			}
		}
	}
	return entries, nil
}
