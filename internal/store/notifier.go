package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// notifier runs queued funcs one at a time, in enqueue order, on a single
// goroutine. The queue is unbounded so enqueue never blocks a commit.
type notifier struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
	log     *zap.Logger
}

func newNotifier(log *zap.Logger) *notifier {
	n := &notifier{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		log:     log,
	}
	go n.run()
	return n
}

func (n *notifier) enqueue(fns ...func()) bool {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return false
	}
	n.queue = append(n.queue, fns...)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
	return true
}

func (n *notifier) run() {
	defer close(n.stopped)
	for {
		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		closed := n.closed
		n.mu.Unlock()

		for _, fn := range batch {
			n.call(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-n.wake
	}
}

func (n *notifier) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("commit listener panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

// flush blocks until everything queued before the call has run.
func (n *notifier) flush(ctx context.Context) error {
	done := make(chan struct{})
	if !n.enqueue(func() { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the queue and stops the goroutine.
func (n *notifier) close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.stopped
		return
	}
	n.closed = true
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
	<-n.stopped
}
