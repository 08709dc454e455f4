package mcpserver

import (
	"testing"

	"github.com/andywolf/ralph/internal/dispatcher"
)

func TestStartRejectsUnreadableConfig(t *testing.T) {
	mgr := NewManager()
	_, err := mgr.Start("do the thing", "/nonexistent/path/to/ralph.yaml", "")
	if err == nil {
		t.Fatal("Start() with a missing config file, want error, got nil")
	}
}

func TestStatusUnknownSession(t *testing.T) {
	mgr := NewManager()
	if _, ok := mgr.Status("ralph-deadbeef"); ok {
		t.Error("Status() for an unregistered session id, want ok=false")
	}
}

func TestStopUnknownSession(t *testing.T) {
	mgr := NewManager()
	if mgr.Stop("ralph-deadbeef") {
		t.Error("Stop() for an unregistered session id, want false")
	}
}

func TestSessionIDFormat(t *testing.T) {
	sess := newSession("objective")
	if len(sess.ID) != len("ralph-")+8 {
		t.Errorf("session ID = %q, want ralph- prefix plus 8 hex chars", sess.ID)
	}
	if sess.ID[:6] != "ralph-" {
		t.Errorf("session ID = %q, want ralph- prefix", sess.ID)
	}
}

func TestSessionSnapshotReflectsFinish(t *testing.T) {
	sess := newSession("objective")
	snap := sess.snapshot()
	if snap.Status != StatusRunning {
		t.Errorf("initial Status = %v, want running", snap.Status)
	}

	sess.finish(dispatcher.Result{Reason: dispatcher.Natural, Iterations: 3}, nil)
	snap = sess.snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("Status after natural finish = %v, want completed", snap.Status)
	}
	if snap.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", snap.Iterations)
	}
}

func TestRequestStopIsIdempotent(t *testing.T) {
	sess := newSession("objective")
	sess.requestStop()
	sess.requestStop() // must not panic on double-close
	select {
	case <-sess.stop:
	default:
		t.Error("stop channel not closed after requestStop")
	}
}
