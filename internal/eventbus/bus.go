// Package eventbus provides a multi-listener event emitter and a bridge that
// turns an emission into an awaitable promise.
package eventbus

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMissingEventName is returned by Request when no event name is given.
var ErrMissingEventName = errors.New("eventbus: event name is required")

// Handler receives the arguments of an emitted event.
type Handler func(args ...any)

type listener struct {
	id uuid.UUID
	fn Handler
}

// Bus delivers events to every listener registered for the name, in
// registration order, on the emitting goroutine.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]listener
	log       *zap.Logger
}

// New returns an empty bus. A nil logger disables logging.
func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		listeners: make(map[string][]listener),
		log:       log,
	}
}

// On registers fn for name and returns a func that removes it.
func (b *Bus) On(name string, fn Handler) (off func()) {
	id := uuid.New()
	b.mu.Lock()
	b.listeners[name] = append(b.listeners[name], listener{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.listeners[name] = slices.DeleteFunc(b.listeners[name], func(l listener) bool { return l.id == id })
		if len(b.listeners[name]) == 0 {
			delete(b.listeners, name)
		}
	}
}

// Emit calls every listener of name with args. It does not report whether
// anyone listened.
func (b *Bus) Emit(name string, args ...any) {
	b.mu.RLock()
	ls := slices.Clone(b.listeners[name])
	b.mu.RUnlock()

	b.log.Debug("emit", zap.String("event", name), zap.Int("listeners", len(ls)))
	for _, l := range ls {
		l.fn(args...)
	}
}

// ListenerCount returns the number of listeners registered for name.
func (b *Bus) ListenerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}
