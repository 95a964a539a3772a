// Package progress defines the ordered events a run emits and the sinks that
// carry them to a transport.
package progress

import (
	"encoding/json"
	"sync"
	"time"
)

// Kind identifies the stage an event was emitted from.
type Kind string

const (
	KindStart   Kind = "start"
	KindSetup   Kind = "setup"
	KindClone   Kind = "clone"
	KindAnalyze Kind = "analyze"
	KindPlan    Kind = "plan"
	KindBranch  Kind = "branch"
	KindEdit    Kind = "edit"
	KindCreate  Kind = "create"
	KindDelete  Kind = "delete"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindCommit  Kind = "commit"
	KindPR      Kind = "pr"
	KindDone    Kind = "done"
	KindCleanup Kind = "cleanup"
)

// Event is a single progress notification.
// Payload, when set, is serialized as JSON in place of Message.
type Event struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message,omitempty"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// New creates a message event stamped with the current time.
func New(kind Kind, message string) Event {
	return Event{Kind: kind, Message: message, Time: time.Now()}
}

// Data returns the wire form of the event body.
func (e Event) Data() string {
	if e.Payload == nil {
		return e.Message
	}
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return e.Message
	}
	return string(b)
}

// Sink receives events in emission order.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Tee fans each event out to every sink, in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(e)
			}
		}
	})
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e.
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
