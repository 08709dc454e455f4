// Package dispatcher owns the run: it dequeues events, resolves the
// hat that should handle each one, composes its prompt, drives the PTY
// executor, parses the resulting output back into events, and decides
// when the run is finished.
package dispatcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/andywolf/ralph/internal/event"
	"github.com/andywolf/ralph/internal/hat"
	"github.com/andywolf/ralph/internal/promptcompose"
	"github.com/andywolf/ralph/internal/ptyexec"
	"github.com/andywolf/ralph/internal/redact"
	"github.com/andywolf/ralph/internal/topic"
)

// Reason explains why a run terminated.
type Reason int

const (
	// Running means the loop has not yet terminated.
	Running Reason = iota
	Natural
	NoProgress
	IdleTimeout
	UserInterrupt
	ForceKill
	MaxIterations
)

func (r Reason) String() string {
	switch r {
	case Running:
		return "running"
	case Natural:
		return "natural"
	case NoProgress:
		return "no_progress"
	case IdleTimeout:
		return "idle_timeout"
	case UserInterrupt:
		return "user_interrupt"
	case ForceKill:
		return "force_kill"
	case MaxIterations:
		return "max_iterations"
	default:
		return "unknown"
	}
}

// Observer receives a synchronous, non-blocking callback for every
// accepted event and every completed iteration. Implementations must
// not block — the dispatcher invokes them inline on its single thread
// of execution.
type Observer interface {
	OnEvent(e event.Event)
	OnIteration(n int, active hat.Id)
}

// noopObserver discards every callback. Used when the caller supplies
// none, so the dispatcher never needs a nil check at the call site.
type noopObserver struct{}

func (noopObserver) OnEvent(event.Event)     {}
func (noopObserver) OnIteration(int, hat.Id) {}

// Result is the outcome of a completed run.
type Result struct {
	Reason     Reason
	Iterations int
}

// Config bundles the values that stay fixed for a run.
type Config struct {
	CompletionPromise string
	MaxIterations     int // 0 disables the cap
}

// Built-in topics the dispatcher and hats agree on by convention.
const (
	TaskStart    = topic.Topic("task.start")
	BuildDone    = topic.Topic("build.done")
	BuildBlocked = topic.Topic("build.blocked")
)

// noEvidencePayload explains a build.done rejection when the payload
// mentions none of tests:/lint:/typecheck: at all, so there is nothing
// to name as having failed.
const noEvidencePayload = "build.done rejected: no backpressure evidence found (need tests/lint/typecheck all pass)"

// Runner is the slice of *ptyexec.Executor the dispatcher depends on.
// Narrowing to an interface lets tests drive the loop without spawning
// a real PTY.
type Runner interface {
	RunObserve(prompt string) (*ptyexec.Result, error)
	RunInteractive(prompt string) (*ptyexec.Result, error)
	Interactive() bool
}

// Dispatcher runs the event loop against a hat registry, a prompt
// composer, a PTY executor, and a journal.
type Dispatcher struct {
	Registry *hat.Registry
	Composer *promptcompose.Composer
	Executor Runner
	Journal  *event.Journal
	Config   Config
	Observer Observer

	// StopSignal, when set, lets an outer caller request orderly
	// shutdown between iterations (e.g. a tool-server cancelling a
	// session it started). A closed or ready channel ends the run
	// with UserInterrupt at the next iteration boundary; a nil
	// channel (the default) is simply never ready.
	StopSignal <-chan struct{}

	scrubber *redact.Scrubber
	queue    []event.Event
}

// New constructs a Dispatcher. A nil observer is replaced with a
// no-op implementation.
func New(registry *hat.Registry, composer *promptcompose.Composer, executor Runner, journal *event.Journal, cfg Config, observer Observer) *Dispatcher {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Dispatcher{
		Registry: registry,
		Composer: composer,
		Executor: executor,
		Journal:  journal,
		Config:   cfg,
		Observer: observer,
		scrubber: redact.NewScrubber(),
	}
}

// Run seeds the queue with a task.start event carrying objective and
// drives the loop until a termination condition is reached.
func (d *Dispatcher) Run(objective string) (Result, error) {
	d.queue = []event.Event{event.New(TaskStart, objective, time.Now())}
	activeHat := d.defaultHat()

	iteration := 0
	for {
		select {
		case <-d.StopSignal:
			return Result{Reason: UserInterrupt, Iterations: iteration}, nil
		default:
		}

		if len(d.queue) == 0 {
			return Result{Reason: NoProgress, Iterations: iteration}, nil
		}

		current := d.queue[0]
		d.queue = d.queue[1:]

		subscribers := d.Registry.SubscribersOf(current.Topic)
		if len(subscribers) > 0 {
			activeHat = subscribers[0]
		} else {
			activeHat = d.defaultHat()
		}

		iteration++
		prompt := d.composePrompt(activeHat, current)

		var result *ptyexec.Result
		var err error
		if d.Executor.Interactive() {
			result, err = d.Executor.RunInteractive(prompt)
		} else {
			result, err = d.Executor.RunObserve(prompt)
		}
		if err != nil {
			return Result{Reason: NoProgress, Iterations: iteration}, fmt.Errorf("dispatcher: executor: %w", err)
		}

		d.Observer.OnIteration(iteration, activeHat)

		switch result.Termination {
		case ptyexec.IdleTimeout:
			return Result{Reason: IdleTimeout, Iterations: iteration}, nil
		case ptyexec.UserInterrupt:
			return Result{Reason: UserInterrupt, Iterations: iteration}, nil
		case ptyexec.ForceKill:
			return Result{Reason: ForceKill, Iterations: iteration}, nil
		}

		parser := event.NewParser(activeHat)
		parsed := parser.Parse(result.StrippedOutput)
		sentinelSeen := event.ContainsPromise(result.StrippedOutput, d.Config.CompletionPromise)

		for _, e := range parsed {
			if e.Source == "" {
				e = e.WithSource(activeHat)
			}
			d.accept(e)
		}

		if sentinelSeen {
			return Result{Reason: Natural, Iterations: iteration}, nil
		}

		if d.Config.MaxIterations > 0 && iteration >= d.Config.MaxIterations {
			return Result{Reason: MaxIterations, Iterations: iteration}, nil
		}
	}
}

// blockedPayloadFor names which of tests/lint/typecheck failed (or were
// never mentioned) in evidence, per spec.md §8 scenario 2 ("a
// synthesised build.blocked event... whose payload names the failing
// check").
func blockedPayloadFor(evidence event.BackpressureEvidence) string {
	var failing []string
	if !evidence.TestsPassed {
		failing = append(failing, "tests")
	}
	if !evidence.LintPassed {
		failing = append(failing, "lint")
	}
	if !evidence.TypecheckPassed {
		failing = append(failing, "typecheck")
	}
	return fmt.Sprintf("build.done rejected: failing check(s): %s", strings.Join(failing, ", "))
}

// accept applies backpressure gating to build.done events, journals
// whatever is ultimately accepted, and enqueues it for the next turn.
func (d *Dispatcher) accept(e event.Event) {
	if e.Topic == BuildDone {
		evidence, found := event.ParseBackpressureEvidence(e.Payload)
		if !found {
			blocked := event.New(BuildBlocked, noEvidencePayload, time.Now()).WithSource(e.Source)
			d.journalAndEnqueue(blocked)
			return
		}
		if !evidence.AllPassed() {
			blocked := event.New(BuildBlocked, blockedPayloadFor(evidence), time.Now()).WithSource(e.Source)
			d.journalAndEnqueue(blocked)
			return
		}
	}
	d.journalAndEnqueue(e)
}

// journalAndEnqueue writes a scrubbed copy of e to the journal and
// hands the same scrubbed copy to the observer, so a credential the
// agent echoes into a payload never reaches the durable log or the
// dashboard. The unscrubbed event is what gets queued and fed back
// into the next prompt, since scrubbing there would corrupt the
// agent's own machine-readable state.
func (d *Dispatcher) journalAndEnqueue(e event.Event) {
	scrubbed := e
	scrubbed.Payload = d.scrubber.Scrub(e.Payload)

	if d.Journal != nil {
		_ = d.Journal.Append(scrubbed)
	}
	d.Observer.OnEvent(scrubbed)
	d.queue = append(d.queue, e)
}

// composePrompt renders the prompt for whichever hat is active,
// choosing the planner/builder built-ins, the custom-hat variant, or
// the hatless solo prompt.
func (d *Dispatcher) composePrompt(active hat.Id, incoming event.Event) string {
	context := fmt.Sprintf("<event topic=%q>%s</event>", incoming.Topic.String(), incoming.Payload)

	if d.Registry.IsEmpty() {
		return d.Composer.BuildSolo(d.Registry, context)
	}

	switch active {
	case hat.Planner:
		return d.Composer.BuildPlanner(context)
	case hat.Builder:
		return d.Composer.BuildBuilder(context)
	}

	if h, ok := d.Registry.Get(active); ok {
		return d.Composer.BuildCustomHat(h, context)
	}
	return d.Composer.BuildSolo(d.Registry, context)
}

// defaultHat is the hat that handles an event with no matching
// subscriber: the planner if configured, else hatless Ralph.
func (d *Dispatcher) defaultHat() hat.Id {
	if _, ok := d.Registry.Get(hat.Planner); ok {
		return hat.Planner
	}
	return ""
}
