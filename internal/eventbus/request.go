package eventbus

import (
	"slices"

	"github.com/atinyakov/appstate/internal/promise"
)

// Callbacks is appended as the last argument of an event emitted by Request.
// The receiving listener settles the request by calling exactly one of them.
type Callbacks struct {
	Success func(v any)
	Fail    func(err error)
}

// CallbacksFrom returns the Callbacks carried by an emitted event, if any.
func CallbacksFrom(args []any) (Callbacks, bool) {
	if len(args) == 0 {
		return Callbacks{}, false
	}
	cb, ok := args[len(args)-1].(Callbacks)
	return cb, ok
}

// Request emits name with args plus a Callbacks value and returns a promise
// settled by whichever callback is invoked first. Later invocations are
// ignored. If no listener ever calls back, the promise stays pending.
func Request(b *Bus, name string, args ...any) (*promise.Promise, error) {
	if name == "" {
		return nil, ErrMissingEventName
	}

	p := promise.New()
	cb := Callbacks{
		Success: func(v any) { p.Resolve(v) },
		Fail:    func(err error) { p.Reject(err) },
	}
	b.Emit(name, append(slices.Clone(args), cb)...)
	return p, nil
}
