package eventlog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWriter(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	currentFile := writer.GetCurrentLogFile()
	if currentFile == "" {
		t.Error("No current log file set")
	}
	if _, err := os.Stat(currentFile); os.IsNotExist(err) {
		t.Error("Current log file does not exist")
	}
}

func TestWriteEntry(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	entry := NewEntry("sess-1", "topic", KindQuestion)
	entry.SetData("topic", "Goroutines")
	entry.SetData("question", "How do goroutines differ from threads?")

	if err := writer.WriteEntry(entry); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}

	data, err := os.ReadFile(writer.GetCurrentLogFile())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("Log file is empty")
	}
	if data[len(data)-1] != '\n' {
		t.Error("Log line should end with newline")
	}
}

func TestWriteAndReadBack(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	entries := []*Entry{
		NewEntry("sess-1", "topic", KindQuestion).SetData("question", "Q1?"),
		NewEntry("sess-1", "human_input", KindAnswer).SetData("answer", "A1"),
		NewEntry("sess-1", "answer_validation", KindDecision).SetData("passed", true),
	}
	for i, e := range entries {
		if err := writer.WriteEntry(e); err != nil {
			t.Fatalf("Failed to write entry %d: %v", i, err)
		}
	}

	read, err := ReadEntries(writer.GetCurrentLogFile())
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(read) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(read))
	}
	if read[0].Kind != KindQuestion || read[0].Stage != "topic" {
		t.Errorf("First entry mismatch: kind=%s stage=%s", read[0].Kind, read[0].Stage)
	}
	if read[1].Data["answer"] != "A1" {
		t.Errorf("Answer payload not preserved: %v", read[1].Data)
	}
	if passed, ok := read[2].Data["passed"].(bool); !ok || !passed {
		t.Errorf("Decision payload not preserved: %v", read[2].Data)
	}
}

func TestReadEntriesWithoutTrailingNewline(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "events-2026-01-02.jsonl")

	entry := NewEntry("sess-1", "feedback", KindFeedback)
	data, err := entry.ToJSON()
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	read, err := ReadEntries(path)
	if err != nil {
		t.Fatalf("Failed to read entries: %v", err)
	}
	if len(read) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(read))
	}
}

func TestReadSessionEntries(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	for _, e := range []*Entry{
		NewEntry("sess-1", "topic", KindQuestion),
		NewEntry("sess-2", "topic", KindQuestion),
		NewEntry("sess-1", "feedback", KindFeedback),
	} {
		if err := writer.WriteEntry(e); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}

	entries, err := ReadSessionEntries(tmpDir, "sess-1")
	if err != nil {
		t.Fatalf("Failed to read session entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries for sess-1, got %d", len(entries))
	}
	for _, e := range entries {
		if e.SessionID != "sess-1" {
			t.Errorf("Unexpected session in filtered entries: %s", e.SessionID)
		}
	}
}

func TestListLogFiles(t *testing.T) {
	tmpDir := t.TempDir()

	writer, err := NewWriter(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer writer.Close()

	if err := writer.WriteEntry(NewEntry("sess-1", "topic", KindQuestion)); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}

	files, err := ListLogFiles(tmpDir)
	if err != nil {
		t.Fatalf("Failed to list log files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Expected 1 log file, got %d", len(files))
	}
}
