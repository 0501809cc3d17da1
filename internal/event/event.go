// Package event is a small synchronous pub/sub used to fan editor changes
// out to redraw loops and websocket clients.
package event

import (
	"sync"
	"time"
)

// Type names an editor event.
type Type string

// Event is a published change. Data depends on Type.
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives events. OnEvent runs on the publisher's goroutine and
// must not block. Listeners are compared with == on Unsubscribe, so use
// pointer types.
type Listener interface {
	OnEvent(ev Event)
}

// Dispatcher delivers events to listeners subscribed to their type, or to
// every type via SubscribeAll.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Type][]Listener
	all       []Listener
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[Type][]Listener),
	}
}

// Subscribe registers l for one event type.
func (d *Dispatcher) Subscribe(t Type, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[t] = append(d.listeners[t], l)
}

// SubscribeAll registers l for every event type.
func (d *Dispatcher) SubscribeAll(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, l)
}

// Unsubscribe removes l from t, or from the catch-all list when t is empty.
func (d *Dispatcher) Unsubscribe(t Type, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t == "" {
		d.all = remove(d.all, l)
		return
	}
	d.listeners[t] = remove(d.listeners[t], l)
}

func remove(ls []Listener, l Listener) []Listener {
	for i, x := range ls {
		if x == l {
			out := make([]Listener, 0, len(ls)-1)
			out = append(out, ls[:i]...)
			return append(out, ls[i+1:]...)
		}
	}
	return ls
}

// Dispatch delivers ev synchronously. Listeners are snapshotted so they may
// unsubscribe while being called.
func (d *Dispatcher) Dispatch(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	d.mu.RLock()
	targets := make([]Listener, 0, len(d.listeners[ev.Type])+len(d.all))
	targets = append(targets, d.listeners[ev.Type]...)
	targets = append(targets, d.all...)
	d.mu.RUnlock()

	for _, l := range targets {
		l.OnEvent(ev)
	}
}
