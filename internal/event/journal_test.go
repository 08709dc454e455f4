package event

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/andywolf/ralph/internal/topic"
)

func TestJournalAppendWritesOneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	defer j.Close()

	e1 := New(topic.New("build.task"), "first", fixedNow())
	e2 := New(topic.New("build.done"), "second", fixedNow())

	if err := j.Append(e1); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := j.Append(e2); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("unmarshal line 0: %v", err)
	}
	if decoded.Topic != topic.New("build.task") || decoded.Payload != "first" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestJournalAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	_ = j.Append(New(topic.New("a"), "1", fixedNow()))
	j.Close()

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	j2, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = j2.Append(New(topic.New("b"), "2", fixedNow()))
	j2.Close()

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) <= len(before) {
		t.Fatalf("reopening should append, not truncate: before=%d after=%d", len(before), len(after))
	}
	if string(after[:len(before)]) != string(before) {
		t.Errorf("existing journal content was rewritten")
	}
}
