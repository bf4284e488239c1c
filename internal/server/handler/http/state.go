package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/appstate/internal/models"
	"github.com/atinyakov/appstate/internal/promise"
	"github.com/atinyakov/appstate/internal/store"
)

// Store defines the state container operations required by the HTTP handlers.
type Store interface {
	// State returns a copy of the root state.
	State() models.State
	// Get resolves a "<module>.<field>" path.
	Get(path string) (any, error)
	// Commit applies a mutation synchronously.
	Commit(name models.Mutation, payload any) error
	// Dispatch starts an action.
	Dispatch(ctx context.Context, name models.Action, payload any) (*promise.Promise, error)
	// Subscribe registers a commit listener.
	Subscribe(fn func(models.CommitEvent)) (unsubscribe func())
}

// StateHandler serves reads, commits and dispatches against a Store.
type StateHandler struct {
	// Store is the container being inspected.
	Store Store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps store usage errors to client errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnknownMutation),
		errors.Is(err, store.ErrUnknownAction),
		errors.Is(err, store.ErrUnknownPath):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodePayload reads an optional JSON payload. An empty body is a nil payload.
func decodePayload(r *http.Request) (any, error) {
	var payload any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return payload, nil
}

// GetState writes the whole root state.
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.State())
}

// GetPath writes the value at the {path} URL parameter, e.g. "auth.isLogin".
func (h *StateHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.Get(chi.URLParam(r, "path"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": v})
}

// Commit applies the {name} mutation with the request body as payload.
func (h *StateHandler) Commit(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.Store.Commit(models.Mutation(chi.URLParam(r, "name")), payload); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch runs the {name} action with the request body as payload and waits
// for it. A client disconnect stops the wait, not the action.
func (h *StateHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	// the action outlives the request if the client goes away
	p, err := h.Store.Dispatch(context.WithoutCancel(r.Context()), models.Action(chi.URLParam(r, "name")), payload)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	v, err := p.Await(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": v})
}
