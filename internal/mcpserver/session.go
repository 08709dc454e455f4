// Package mcpserver exposes Ralph's event loop through the Model
// Context Protocol, so a remote MCP client can start, poll, and stop
// runs the same way the CLI's run/status commands do locally. It is
// one of the two narrow front-ends spec.md §6 describes as external
// collaborators: it talks to the dispatcher only through the same
// dispatcher.Observer interface the TUI dashboard uses, and through
// the Dispatcher.StopSignal channel for cancellation.
package mcpserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "github.com/andywolf/ralph/internal/backend/aider"
	_ "github.com/andywolf/ralph/internal/backend/claudecode"
	_ "github.com/andywolf/ralph/internal/backend/codex"

	"github.com/andywolf/ralph/internal/backend"
	"github.com/andywolf/ralph/internal/config"
	"github.com/andywolf/ralph/internal/dispatcher"
	"github.com/andywolf/ralph/internal/event"
	"github.com/andywolf/ralph/internal/hat"
	"github.com/andywolf/ralph/internal/promptcompose"
	"github.com/andywolf/ralph/internal/ptyexec"
	"github.com/andywolf/ralph/internal/topic"
)

// Status is the lifecycle state of a session started through
// ralph_run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Session is one ralph_run invocation's tracked state, polled via
// ralph_status and cancellable via ralph_stop.
type Session struct {
	ID        string
	Objective string
	StartedAt time.Time

	mu         sync.Mutex
	status     Status
	reason     string
	iterations int
	errMsg     string

	stop     chan struct{}
	stopOnce sync.Once
}

func newSession(objective string) *Session {
	return &Session{
		ID:        fmt.Sprintf("ralph-%s", uuid.New().String()[:8]),
		Objective: objective,
		StartedAt: time.Now(),
		status:    StatusRunning,
		stop:      make(chan struct{}),
	}
}

func (s *Session) finish(result dispatcher.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iterations = result.Iterations
	s.reason = result.Reason.String()
	switch {
	case err != nil:
		s.status = StatusFailed
		s.errMsg = err.Error()
	case result.Reason == dispatcher.UserInterrupt:
		s.status = StatusStopped
	case result.Reason == dispatcher.Natural:
		s.status = StatusCompleted
	default:
		s.status = StatusFailed
	}
}

// Snapshot is a point-in-time copy of a Session's fields, safe to read
// without holding the session's lock.
type Snapshot struct {
	ID         string
	Objective  string
	Status     Status
	Reason     string
	Iterations int
	Err        string
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:         s.ID,
		Objective:  s.Objective,
		Status:     s.status,
		Reason:     s.reason,
		Iterations: s.iterations,
		Err:        s.errMsg,
	}
}

// requestStop closes the session's stop channel exactly once, which
// the running Dispatcher observes as its StopSignal at the next
// iteration boundary.
func (s *Session) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Manager tracks sessions started via ralph_run. Ralph's core loop is
// explicitly single-tenant (spec.md §1 Non-goals), so the manager
// only ever drives one Dispatcher at a time; runLock enforces that
// while still letting ralph_status/ralph_stop/ralph_list_hats answer
// concurrently against already-recorded session state.
type Manager struct {
	runLock sync.Mutex

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Start builds a Dispatcher from the configuration at configPath (or
// the default search path when empty) and runs it against objective
// in the background, returning a Session immediately. workingDir, if
// set, is used to resolve a relative configPath — Ralph's own run
// never changes the orchestrator process's working directory, since
// more than one session's config load could otherwise race on it.
func (m *Manager) Start(objective, configPath, workingDir string) (*Session, error) {
	resolved := configPath
	if workingDir != "" && configPath != "" && !isAbs(configPath) {
		resolved = workingDir + "/" + configPath
	}

	cfg, err := config.Load(resolved)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: load config: %w", err)
	}

	registry := registryFromConfig(cfg)
	events := make(map[string]hat.EventMetadata, len(cfg.Events))
	for t, e := range cfg.Events {
		events[t] = hat.EventMetadata{OnTrigger: e.OnTrigger, OnPublish: e.OnPublish}
	}
	composer := promptcompose.New(cfg.CompletionPromise, hat.CoreConfig{
		Scratchpad: cfg.Core.Scratchpad,
		SpecsDir:   cfg.Core.SpecsDir,
		Guardrails: cfg.Core.Guardrails,
	}, events)
	composer.InitialPromptTemplate = cfg.EventLoop.InitialPromptTemplate

	be, err := backend.Get(cfg.Backend.Name)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: backend: %w", err)
	}

	execCfg := ptyexec.ConfigFromEnv()
	if cfg.Executor.Cols != 0 {
		execCfg.Cols = uint16(cfg.Executor.Cols)
	}
	if cfg.Executor.Rows != 0 {
		execCfg.Rows = uint16(cfg.Executor.Rows)
	}
	execCfg.Interactive = false // a remote tool-server call has no host TTY to forward
	execCfg.IdleTimeoutSecs = cfg.IdleTimeoutSecs
	executor := ptyexec.New(be, execCfg)

	journal, err := event.OpenJournal(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: open journal: %w", err)
	}

	sess := newSession(objective)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	d := dispatcher.New(registry, composer, executor, journal, dispatcher.Config{
		CompletionPromise: cfg.CompletionPromise,
		MaxIterations:     cfg.MaxIterations,
	}, nil)
	d.StopSignal = sess.stop

	go func() {
		defer journal.Close()
		m.runLock.Lock()
		defer m.runLock.Unlock()
		result, err := d.Run(objective)
		sess.finish(result, err)
	}()

	return sess, nil
}

// Status returns a snapshot of the named session, or false if unknown.
func (m *Manager) Status(id string) (Snapshot, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return sess.snapshot(), true
}

// Stop requests that the named session terminate at its next
// iteration boundary. Returns false if the session is unknown.
func (m *Manager) Stop(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	sess.requestStop()
	return true
}

func isAbs(p string) bool {
	return len(p) > 0 && p[0] == '/'
}

// registryFromConfig builds a hat.Registry the same way cli.run does;
// kept in lockstep with internal/cli/run.go's buildRegistry since both
// wire the same configuration document into the same dispatcher.
func registryFromConfig(cfg *config.Config) *hat.Registry {
	registry := hat.NewRegistry()
	for id, h := range cfg.Hats {
		subs := make([]topic.Topic, 0, len(h.Triggers))
		for _, t := range h.Triggers {
			subs = append(subs, topic.New(t))
		}
		pubs := make([]topic.Topic, 0, len(h.Publishes))
		for _, t := range h.Publishes {
			pubs = append(pubs, topic.New(t))
		}
		registry.Add(hat.Hat{
			ID:            hat.Id(id),
			Name:          h.Name,
			Subscriptions: subs,
			Publishes:     pubs,
			Instructions:  h.Instructions,
		})
	}
	return registry
}
