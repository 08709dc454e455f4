package aider

import (
	"slices"
	"testing"
)

func TestBuildCommandDefaultModel(t *testing.T) {
	a := New()
	program, args, stdin := a.BuildCommand("do the thing")

	if program != "aider" {
		t.Errorf("program = %q, want aider", program)
	}
	if stdin != "" {
		t.Errorf("stdin = %q, want empty", stdin)
	}
	want := []string{"--model", "claude-3-5-sonnet-20241022", "--yes-always", "--no-git", "--message", "do the thing"}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildCommandCustomModel(t *testing.T) {
	a := &Adapter{Model: "gpt-4o"}
	_, args, _ := a.BuildCommand("prompt")

	want := []string{"--model", "gpt-4o", "--yes-always", "--no-git", "--message", "prompt"}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "aider" {
		t.Errorf("Name() = %q, want aider", got)
	}
}
