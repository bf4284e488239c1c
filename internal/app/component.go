package app

import (
	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/eventbus"
	"github.com/atinyakov/appstate/internal/promise"
	"github.com/atinyakov/appstate/internal/store"
)

// Component is the service object handed to each UI component: the shared
// store plus the component's own event emitter.
type Component struct {
	name  string
	store *store.Store
	bus   *eventbus.Bus
	log   *zap.Logger
}

// NewComponent returns the service object for a component called name.
func (a *App) NewComponent(name string) *Component {
	log := a.log.With(zap.String("component", name))
	return &Component{
		name:  name,
		store: a.store,
		bus:   eventbus.New(log),
		log:   log,
	}
}

// Name returns the component name.
func (c *Component) Name() string {
	return c.name
}

// Store returns the application store.
func (c *Component) Store() *store.Store {
	return c.store
}

// On registers a listener for events this component emits, typically by its parent.
func (c *Component) On(name string, fn eventbus.Handler) (off func()) {
	return c.bus.On(name, fn)
}

// Emit emits name with args and an eventbus.Callbacks value, and returns a
// promise settled by the listener's Success or Fail call. An empty name
// fails with eventbus.ErrMissingEventName before anything is emitted.
func (c *Component) Emit(name string, args ...any) (*promise.Promise, error) {
	return eventbus.Request(c.bus, name, args...)
}
