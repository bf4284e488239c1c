// Package promise provides a single-shot deferred result that settles once,
// either with a value or with an error.
package promise

import (
	"context"
	"errors"
	"sync"
)

// ErrNilRejection is returned by Await when Reject was called with a nil error.
var ErrNilRejection = errors.New("promise rejected without error")

// Promise is a deferred result. The zero value is not usable; use New.
type Promise struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// New returns a pending promise.
func New() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved returns a promise already settled with v.
func Resolved(v any) *Promise {
	p := New()
	p.Resolve(v)
	return p
}

// Resolve settles the promise with v. It reports whether this call settled it;
// calls after the first settle are no-ops.
func (p *Promise) Resolve(v any) bool {
	return p.settle(v, nil)
}

// Reject settles the promise with err. Same first-wins rule as Resolve.
func (p *Promise) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	return p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) bool {
	settled := false
	p.once.Do(func() {
		p.value, p.err = v, err
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the promise settles or ctx is done. Giving up on ctx
// does not cancel the work behind the promise.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
