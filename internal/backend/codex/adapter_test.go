package codex

import (
	"slices"
	"testing"
)

func TestBuildCommandMinimal(t *testing.T) {
	a := New()
	program, args, stdin := a.BuildCommand("do the thing")

	if program != "codex" {
		t.Errorf("program = %q, want codex", program)
	}
	if stdin != "" {
		t.Errorf("stdin = %q, want empty", stdin)
	}
	want := []string{"exec", "--json", "--skip-git-repo-check", "--cd", "/workspace", "do the thing"}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestBuildCommandWithAllOptions(t *testing.T) {
	a := &Adapter{Model: "gpt-5", ReasoningEffort: "high", YOLO: true, DeveloperInstructions: "be careful"}
	_, args, _ := a.BuildCommand("prompt")

	want := []string{
		"exec", "--json", "--skip-git-repo-check", "--cd", "/workspace",
		"--yolo", "--model", "gpt-5",
		"-c", "model_reasoning_effort=high",
		"-c", "developer_instructions=be careful",
		"prompt",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestName(t *testing.T) {
	if got := New().Name(); got != "codex" {
		t.Errorf("Name() = %q, want codex", got)
	}
}
