// Package http provides the inspector API: HTTP routing, state handlers and
// the WebSocket commit stream.
package http

import (
	"net/http"

	"github.com/atinyakov/appstate/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the inspector API on r and returns it. r must not have
// routes yet, since chi rejects middleware added after routes.
//
// Routes:
//
//	GET  /api/state            → stateHandler.GetState
//	GET  /api/state/{path}     → stateHandler.GetPath
//	POST /api/commit/{name}    → stateHandler.Commit
//	POST /api/dispatch/{name}  → stateHandler.Dispatch
//	GET  /api/watch            → watchHandler.Watch (WebSocket)
//	GET  /metrics              → metrics, when non-nil
//
// Middleware chain (applied in order):
//  1. Recoverer: turns handler panics into 500
//  2. TokenAuth(token): bearer token, disabled when empty
//  3. WithRequestLogging(logger): logs incoming requests
//  4. AllowContentType("application/json"), /api only: rejects non-JSON bodies
func NewRouter(
	r chi.Router,
	stateHandler *StateHandler,
	watchHandler *WatchHandler,
	metrics http.Handler,
	token string,
	logger *zap.Logger,
) chi.Router {
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.TokenAuth(token))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Get("/state", stateHandler.GetState)
		r.Get("/state/{path}", stateHandler.GetPath)
		r.Post("/commit/{name}", stateHandler.Commit)
		r.Post("/dispatch/{name}", stateHandler.Dispatch)
		r.Get("/watch", watchHandler.Watch)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}
