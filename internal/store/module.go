package store

import (
	"context"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/promise"
)

// MutationFunc applies a synchronous change to the state held by mc.
// Returning an error discards the change.
type MutationFunc func(mc *MutationContext, payload any) error

// ActionFunc runs an operation that may commit, dispatch or block.
type ActionFunc func(ac *ActionContext, payload any) (any, error)

// GetterFunc derives a value from the root state. It must not mutate st.
type GetterFunc func(st models.State) any

// Module is a unit of state registered with a Store. Mutation, action and
// getter names share one namespace across all modules.
type Module struct {
	// Name is the first segment of state paths ("auth", "user", ...).
	Name string
	// Init seeds the module's part of the root state.
	Init func(st *models.State)
	// Local selects the module's part of the root state.
	Local func(st models.State) any
	// Fields lists readable fields by name for path lookups.
	Fields func(st models.State) map[string]any

	Mutations map[models.Mutation]MutationFunc
	Actions   map[models.Action]ActionFunc
	Getters   map[string]GetterFunc
}

// MutationContext is handed to a MutationFunc.
type MutationContext struct {
	// State is a working copy swapped in when the mutation succeeds.
	State *models.State

	after []func()
}

// AfterCommit schedules fn to run on the store's notifier goroutine once the
// mutation has been applied and published. fn never runs inside Commit.
func (mc *MutationContext) AfterCommit(fn func()) {
	if fn != nil {
		mc.after = append(mc.after, fn)
	}
}

// ActionContext is handed to an ActionFunc.
type ActionContext struct {
	ctx    context.Context
	store  *Store
	module string
}

// Context returns the context the action was dispatched with.
func (ac *ActionContext) Context() context.Context {
	return ac.ctx
}

// Commit commits a mutation on the owning store.
func (ac *ActionContext) Commit(name models.Mutation, payload any) error {
	return ac.store.Commit(name, payload)
}

// Dispatch dispatches another action on the owning store.
func (ac *ActionContext) Dispatch(name models.Action, payload any) (*promise.Promise, error) {
	return ac.store.Dispatch(ac.ctx, name, payload)
}

// State returns the action's own module state.
func (ac *ActionContext) State() any {
	return ac.store.localState(ac.module)
}

// Getters evaluates every registered getter.
func (ac *ActionContext) Getters() map[string]any {
	return ac.store.Getters()
}

// RootState returns a copy of the whole state tree.
func (ac *ActionContext) RootState() models.State {
	return ac.store.State()
}
