// Package event defines Ralph's event record, the sentinel/backpressure
// parser that extracts events from raw agent output, and the append-only
// journal those events are written to.
package event

import (
	"time"

	"github.com/andywolf/ralph/internal/topic"
)

// HatId stably identifies a hat by its configuration key.
type HatId string

// Event is an immutable record of one machine-readable outcome the agent
// emitted. Equality is structural; two Events built from the same fields
// compare equal.
type Event struct {
	Topic     topic.Topic `json:"topic"`
	Payload   string      `json:"payload"`
	Timestamp time.Time   `json:"ts"`
	Source    HatId       `json:"source,omitempty"`
	Target    HatId       `json:"target,omitempty"`
}

// New constructs an Event with the given topic and payload, stamped at
// the current time. Source and Target are left empty; set them with
// WithSource/WithTarget.
func New(t topic.Topic, payload string, now time.Time) Event {
	return Event{Topic: t, Payload: payload, Timestamp: now}
}

// WithSource returns a copy of e with Source set.
func (e Event) WithSource(h HatId) Event {
	e.Source = h
	return e
}

// WithTarget returns a copy of e with Target set.
func (e Event) WithTarget(h HatId) Event {
	e.Target = h
	return e
}
