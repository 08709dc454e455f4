// Package hat declares Ralph's role topology: the declarative hats an
// event can be routed to, the registry that holds them, and the
// resolver that picks a subscriber for a topic.
package hat

import (
	"github.com/andywolf/ralph/internal/event"
	"github.com/andywolf/ralph/internal/topic"
)

// Id stably identifies a hat by its configuration key.
type Id = event.HatId

// Built-in hat identifiers the dispatcher recognises specially when
// present in a registry.
const (
	Planner Id = "planner"
	Builder Id = "builder"
)

// Hat is a role definition: a subscribe/publish contract plus optional
// explicit instructions. When Instructions is empty, the prompt
// composer derives behaviour from the subscribe/publish contract
// instead.
type Hat struct {
	ID            Id
	Name          string
	Subscriptions []topic.Topic
	Publishes     []topic.Topic
	Instructions  string
}

// EventMetadata carries optional free-text instructions for a topic,
// consulted by the prompt composer when deriving a custom hat's
// behaviour from its contract.
type EventMetadata struct {
	OnTrigger string
	OnPublish string
}

// Registry maps hat IDs to hats and preserves the order they were
// registered in, which matters for resolver tie-breaking.
type Registry struct {
	hats  map[Id]Hat
	order []Id
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{hats: make(map[Id]Hat)}
}

// Add registers h, or replaces it in place if its ID is already
// present (registration order is preserved on replace).
func (r *Registry) Add(h Hat) {
	if _, exists := r.hats[h.ID]; !exists {
		r.order = append(r.order, h.ID)
	}
	r.hats[h.ID] = h
}

// Get looks up a hat by ID.
func (r *Registry) Get(id Id) (Hat, bool) {
	h, ok := r.hats[id]
	return h, ok
}

// All returns every registered hat, in registration order.
func (r *Registry) All() []Hat {
	hats := make([]Hat, 0, len(r.order))
	for _, id := range r.order {
		hats = append(hats, r.hats[id])
	}
	return hats
}

// IsEmpty reports whether no hats have been registered — the condition
// under which the dispatcher runs in hatless (solo) mode.
func (r *Registry) IsEmpty() bool {
	return len(r.order) == 0
}

// SubscribersOf returns the hats whose subscriptions match t, ordered
// with specific (non-wildcard) matches first and global-wildcard
// matches last; registration order is preserved within each group. A
// hat that has both a specific and a wildcard subscription matching t
// is placed once, in the specific group.
func (r *Registry) SubscribersOf(t topic.Topic) []Id {
	var specific, wildcard []Id

	for _, id := range r.order {
		h := r.hats[id]
		hasSpecific := false
		hasWildcard := false
		for _, pattern := range h.Subscriptions {
			if !pattern.Matches(t) {
				continue
			}
			if pattern.IsGlobalWildcard() {
				hasWildcard = true
			} else {
				hasSpecific = true
			}
		}
		switch {
		case hasSpecific:
			specific = append(specific, id)
		case hasWildcard:
			wildcard = append(wildcard, id)
		}
	}

	return append(specific, wildcard...)
}

// CoreConfig holds the paths and guardrails injected into every prompt
// regardless of which hat is active.
type CoreConfig struct {
	Scratchpad string
	SpecsDir   string
	Guardrails []string
}

// DefaultCoreConfig returns the configuration used when a run's YAML
// document leaves core.* unset.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Scratchpad: ".agent/scratchpad.md",
		SpecsDir:   "./specs/",
		Guardrails: []string{
			"Search first - don't assume a feature isn't implemented.",
			"Run backpressure (tests, lint, typecheck) before declaring a task done.",
			"Do the smallest atomic task possible; leave the rest for a future iteration.",
		},
	}
}
