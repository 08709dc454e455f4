package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Journal is an append-only, line-delimited JSON event log. It mirrors
// the teacher's buffered FileSink: one json.Marshal per call, a trailing
// newline, and an explicit Flush so post-mortem tooling (or a live
// `tail -f`) can read complete lines as they land.
type Journal struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// OpenJournal opens (creating if necessary) the journal file at path in
// append-only mode.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	return &Journal{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Append writes e as one JSON line and flushes immediately — the
// journal is the run's only durable record, so a write that hasn't hit
// the file yet never counts as having happened.
func (j *Journal) Append(e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: marshal event: %w", err)
	}
	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return j.writer.Flush()
}

// Flush forces any buffered bytes to the underlying file.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writer.Flush()
}

// Close flushes and closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		_ = j.file.Close()
		return fmt.Errorf("journal: flush: %w", err)
	}
	return j.file.Close()
}
