package testutil

import (
	"sync"

	"github.com/mcoot/hostguard/internal/model"
)

// EventRecorder is a model.Observer that keeps every event it receives
type EventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

// Notify records evt
func (r *EventRecorder) Notify(evt model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// Types returns the types of the recorded events, in order
func (r *EventRecorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]model.EventType, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// Count returns how many events of type t were recorded
func (r *EventRecorder) Count(t model.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
