package ptyexec

import (
	"errors"
	"testing"
	"time"
)

func TestCtrlCStateDoublePressWithinWindow(t *testing.T) {
	s := NewCtrlCState()
	base := time.Now()

	if got := s.HandleCtrlC(base); got != ForwardAndStartWindow {
		t.Errorf("first press = %v, want ForwardAndStartWindow", got)
	}
	if got := s.HandleCtrlC(base.Add(200 * time.Millisecond)); got != Terminate {
		t.Errorf("second press within window = %v, want Terminate", got)
	}
}

func TestCtrlCStateWindowExpires(t *testing.T) {
	s := NewCtrlCState()
	base := time.Now()

	if got := s.HandleCtrlC(base); got != ForwardAndStartWindow {
		t.Errorf("first press = %v, want ForwardAndStartWindow", got)
	}
	if got := s.HandleCtrlC(base.Add(1500 * time.Millisecond)); got != ForwardAndStartWindow {
		t.Errorf("press after window expired = %v, want ForwardAndStartWindow", got)
	}
}

func TestCtrlCStateResetsAfterTerminate(t *testing.T) {
	s := NewCtrlCState()
	base := time.Now()

	s.HandleCtrlC(base)
	s.HandleCtrlC(base.Add(100 * time.Millisecond)) // Terminate, resets hasFirst

	if got := s.HandleCtrlC(base.Add(150 * time.Millisecond)); got != ForwardAndStartWindow {
		t.Errorf("press after terminate = %v, want ForwardAndStartWindow (fresh window)", got)
	}
}

func TestIdleTimeoutZeroDisables(t *testing.T) {
	if d := idleTimeout(0); d != 0 {
		t.Errorf("idleTimeout(0) = %v, want 0", d)
	}
	if d := idleTimeout(-5); d != 0 {
		t.Errorf("idleTimeout(-5) = %v, want 0", d)
	}
}

func TestIdleTimeoutConvertsSeconds(t *testing.T) {
	if d := idleTimeout(30); d != 30*time.Second {
		t.Errorf("idleTimeout(30) = %v, want 30s", d)
	}
}

func TestBuildResultSuccess(t *testing.T) {
	res := buildResult([]byte("hello"), Natural, nil)
	if !res.Success || !res.HasExitCode || res.ExitCode != 0 {
		t.Errorf("buildResult(nil err) = %+v, want success with exit code 0", res)
	}
	if res.Termination != Natural {
		t.Errorf("Termination = %v, want Natural", res.Termination)
	}
}

func TestBuildResultNonExitError(t *testing.T) {
	res := buildResult([]byte(""), IdleTimeout, errors.New("spawn failed"))
	if res.Success {
		t.Error("buildResult with a non-exec error must not report success")
	}
	if res.HasExitCode {
		t.Error("buildResult with a non-exec error must not report an exit code")
	}
	if res.Termination != IdleTimeout {
		t.Errorf("Termination = %v, want IdleTimeout", res.Termination)
	}
}

func TestTerminationTypeString(t *testing.T) {
	cases := map[TerminationType]string{
		Natural:       "natural",
		IdleTimeout:   "idle_timeout",
		UserInterrupt: "user_interrupt",
		ForceKill:     "force_kill",
	}
	for tt, want := range cases {
		if got := tt.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(tt), got, want)
		}
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("COLUMNS", "")
	t.Setenv("LINES", "")
	cfg := ConfigFromEnv()
	if cfg.Cols != 80 || cfg.Rows != 24 {
		t.Errorf("ConfigFromEnv() with no env = %+v, want 80x24", cfg)
	}
}

func TestConfigFromEnvOverride(t *testing.T) {
	t.Setenv("COLUMNS", "120")
	t.Setenv("LINES", "40")
	cfg := ConfigFromEnv()
	if cfg.Cols != 120 || cfg.Rows != 40 {
		t.Errorf("ConfigFromEnv() = %+v, want 120x40", cfg)
	}
}
