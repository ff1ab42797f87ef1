// Package events delivers shell notifications to the embedding runtime.
//
// The auth flow announces outcomes ("auth-success", "auth-error") without
// knowing who is listening: the CLI subscribes a terminal printer, a GUI
// runtime embedding the shell subscribes its own bridge.
package events

import (
	"context"
	"sync"
)

// Event names emitted by the auth flow.
const (
	AuthSuccess = "auth-success"
	AuthError   = "auth-error"
)

// Event is a named notification with an arbitrary JSON-serializable payload.
type Event struct {
	Name    string
	Payload any
}

// Emitter delivers events to the embedding runtime.
type Emitter interface {
	Emit(name string, payload any)
}

// Bus is an in-process Emitter that fans events out to subscribers.
// Safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	subs []func(Event)
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all subsequent events.
// Handlers run synchronously on the emitting goroutine, in subscription order.
func (b *Bus) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Emit delivers the event to every subscriber.
func (b *Bus) Emit(name string, payload any) {
	b.mu.Lock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	ev := Event{Name: name, Payload: payload}
	for _, fn := range subs {
		fn(ev)
	}
}

// Discard is an Emitter that drops all events.
type Discard struct{}

func (Discard) Emit(string, any) {}

type contextKey struct{}

// WithEmitter returns a new context carrying the emitter.
func WithEmitter(ctx context.Context, e Emitter) context.Context {
	return context.WithValue(ctx, contextKey{}, e)
}

// FromContext retrieves the emitter from the context.
// Returns Discard when none is attached.
func FromContext(ctx context.Context) Emitter {
	if e, ok := ctx.Value(contextKey{}).(Emitter); ok && e != nil {
		return e
	}
	return Discard{}
}
