// Package store provides the state container: a root state tree composed of
// modules, changed through synchronous commits and asynchronous dispatches.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/promise"
)

// Recorder receives commit and dispatch outcomes, e.g. for metrics.
type Recorder interface {
	ObserveCommit(name models.Mutation, err error)
	ObserveDispatch(name models.Action, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommit(models.Mutation, error)                 {}
func (nopRecorder) ObserveDispatch(models.Action, time.Duration, error) {}

type actionEntry struct {
	module string
	fn     ActionFunc
}

type getterEntry struct {
	module string
	fn     GetterFunc
}

type subscriber struct {
	id uuid.UUID
	fn func(models.CommitEvent)
}

// Store owns the root state. Commits are serialized by a mutex, so no reader
// ever sees a partially applied mutation.
type Store struct {
	mu        sync.RWMutex
	state     models.State
	modules   map[string]Module
	mutations map[models.Mutation]MutationFunc
	actions   map[models.Action]actionEntry
	getters   map[string]getterEntry

	subsMu sync.RWMutex
	subs   []subscriber

	notify    *notifier
	closeOnce sync.Once

	log      *zap.Logger
	recorder Recorder
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for commit and dispatch tracing.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder sets the commit/dispatch observer.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New constructs an empty store. Register modules before use and call Close
// when done to stop the notifier goroutine.
func New(opts ...Option) *Store {
	s := &Store{
		modules:   make(map[string]Module),
		mutations: make(map[models.Mutation]MutationFunc),
		actions:   make(map[models.Action]actionEntry),
		getters:   make(map[string]getterEntry),
		log:       zap.NewNop(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.notify = newNotifier(s.log)
	return s
}

// Register adds modules to the store. A module name, mutation, action or
// getter name already taken by another module fails with ErrDuplicateName and
// leaves the store unchanged.
func (s *Store) Register(mods ...Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range mods {
		if err := s.checkNames(m); err != nil {
			return err
		}
	}
	// names must also be unique among the modules of this call
	seen := make(map[string]string)
	for _, m := range mods {
		for _, name := range moduleNames(m) {
			if owner, ok := seen[name]; ok {
				return fmt.Errorf("register %q: %s already defined by %q: %w", m.Name, name, owner, ErrDuplicateName)
			}
			seen[name] = m.Name
		}
	}

	for _, m := range mods {
		s.modules[m.Name] = m
		for name, fn := range m.Mutations {
			s.mutations[name] = fn
		}
		for name, fn := range m.Actions {
			s.actions[name] = actionEntry{module: m.Name, fn: fn}
		}
		for name, fn := range m.Getters {
			s.getters[name] = getterEntry{module: m.Name, fn: fn}
		}
		if m.Init != nil {
			m.Init(&s.state)
		}
		s.log.Debug("module registered",
			zap.String("module", m.Name),
			zap.Int("mutations", len(m.Mutations)),
			zap.Int("actions", len(m.Actions)),
			zap.Int("getters", len(m.Getters)),
		)
	}
	return nil
}

func moduleNames(m Module) []string {
	names := []string{"module " + m.Name}
	for name := range m.Mutations {
		names = append(names, "mutation "+string(name))
	}
	for name := range m.Actions {
		names = append(names, "action "+string(name))
	}
	for name := range m.Getters {
		names = append(names, "getter "+name)
	}
	return names
}

func (s *Store) checkNames(m Module) error {
	if m.Name == "" {
		return errors.New("register: empty module name")
	}
	if _, ok := s.modules[m.Name]; ok {
		return fmt.Errorf("register %q: module: %w", m.Name, ErrDuplicateName)
	}
	for name := range m.Mutations {
		if _, ok := s.mutations[name]; ok {
			return fmt.Errorf("register %q: mutation %q: %w", m.Name, name, ErrDuplicateName)
		}
	}
	for name := range m.Actions {
		if e, ok := s.actions[name]; ok {
			return fmt.Errorf("register %q: action %q owned by %q: %w", m.Name, name, e.module, ErrDuplicateName)
		}
	}
	for name := range m.Getters {
		if e, ok := s.getters[name]; ok {
			return fmt.Errorf("register %q: getter %q owned by %q: %w", m.Name, name, e.module, ErrDuplicateName)
		}
	}
	return nil
}

// Commit applies the named mutation synchronously. The mutation works on a
// copy of the state that replaces the current state only on success.
func (s *Store) Commit(name models.Mutation, payload any) error {
	s.mu.Lock()
	fn, ok := s.mutations[name]
	if !ok {
		s.mu.Unlock()
		err := fmt.Errorf("commit %q: %w", name, ErrUnknownMutation)
		s.recorder.ObserveCommit(name, err)
		return err
	}

	next := s.state.Clone()
	mc := &MutationContext{State: &next}
	if err := applyMutation(fn, mc, payload); err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("commit %q: %w", name, err)
		s.recorder.ObserveCommit(name, err)
		s.log.Debug("commit rejected", zap.String("mutation", string(name)), zap.Error(err))
		return err
	}
	s.state = next

	// queued under the lock so listeners observe commits in apply order
	event := models.CommitEvent{Mutation: name, Payload: payload, State: next.Clone()}
	s.notify.enqueue(func() { s.publish(event) })
	s.notify.enqueue(mc.after...)
	s.mu.Unlock()

	s.recorder.ObserveCommit(name, nil)
	s.log.Debug("commit", zap.String("mutation", string(name)))
	return nil
}

// applyMutation turns a panicking mutation into an error so Commit always
// releases the store mutex.
func applyMutation(fn MutationFunc, mc *MutationContext, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation panicked: %v", r)
		}
	}()
	return fn(mc, payload)
}

// Dispatch starts the named action on its own goroutine and returns a promise
// settled with the action's result. Unknown names fail before anything runs.
func (s *Store) Dispatch(ctx context.Context, name models.Action, payload any) (*promise.Promise, error) {
	s.mu.RLock()
	entry, ok := s.actions[name]
	s.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("dispatch %q: %w", name, ErrUnknownAction)
		s.recorder.ObserveDispatch(name, 0, err)
		return nil, err
	}

	p := promise.New()
	ac := &ActionContext{ctx: ctx, store: s, module: entry.module}
	go func() {
		start := time.Now()
		v, err := s.runAction(ac, entry.fn, payload)
		s.recorder.ObserveDispatch(name, time.Since(start), err)
		if err != nil {
			s.log.Debug("dispatch failed", zap.String("action", string(name)), zap.Error(err))
			p.Reject(fmt.Errorf("dispatch %q: %w", name, err))
			return
		}
		s.log.Debug("dispatch", zap.String("action", string(name)))
		p.Resolve(v)
	}()
	return p, nil
}

func (s *Store) runAction(ac *ActionContext, fn ActionFunc, payload any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return fn(ac, payload)
}

// State returns a deep copy of the root state.
func (s *Store) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Getter evaluates the named getter against the current state.
func (s *Store) Getter(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.getters[name]
	if !ok {
		return nil, fmt.Errorf("getter %q: %w", name, ErrUnknownPath)
	}
	return e.fn(s.state.Clone()), nil
}

// Getters evaluates every registered getter.
func (s *Store) Getters() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.getters))
	st := s.state.Clone()
	for name, e := range s.getters {
		out[name] = e.fn(st)
	}
	return out
}

// Get resolves a "<module>.<field>" or "<module>.<getter>" path. A bare
// module name returns the module's whole state.
func (s *Store) Get(path string) (any, error) {
	moduleName, key, _ := strings.Cut(path, ".")

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.modules[moduleName]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", path, ErrUnknownPath)
	}
	st := s.state.Clone()
	if key == "" {
		if m.Local == nil {
			return nil, fmt.Errorf("get %q: %w", path, ErrUnknownPath)
		}
		return m.Local(st), nil
	}
	if e, ok := s.getters[key]; ok && e.module == moduleName {
		return e.fn(st), nil
	}
	if m.Fields != nil {
		if v, ok := m.Fields(st)[key]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("get %q: %w", path, ErrUnknownPath)
}

// Paths lists every readable path, sorted.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	st := s.state.Clone()
	for name, m := range s.modules {
		if m.Fields != nil {
			for field := range m.Fields(st) {
				out = append(out, name+"."+field)
			}
		}
	}
	for name, e := range s.getters {
		out = append(out, e.module+"."+name)
	}
	slices.Sort(out)
	return out
}

func (s *Store) localState(module string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[module]
	if !ok || m.Local == nil {
		return nil
	}
	return m.Local(s.state.Clone())
}

// Subscribe registers fn to receive every applied commit. Listeners run on the
// notifier goroutine, in commit order, after the commit returned.
func (s *Store) Subscribe(fn func(models.CommitEvent)) (unsubscribe func()) {
	id := uuid.New()
	s.subsMu.Lock()
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

func (s *Store) publish(event models.CommitEvent) {
	s.subsMu.RLock()
	subs := slices.Clone(s.subs)
	s.subsMu.RUnlock()
	for _, sub := range subs {
		sub.fn(event)
	}
}

// Flush blocks until all listeners and after-commit callbacks queued so far
// have run.
func (s *Store) Flush(ctx context.Context) error {
	return s.notify.flush(ctx)
}

// Close drains pending notifications and stops the notifier. Commits still
// apply after Close but nothing is published. Close must not be called from
// a listener or after-commit callback.
func (s *Store) Close() error {
	s.closeOnce.Do(s.notify.close)
	return nil
}
