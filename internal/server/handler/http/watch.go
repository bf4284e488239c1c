package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atinyakov/appstate/internal/middleware"
	"github.com/atinyakov/appstate/internal/models"
)

const (
	watchBuffer  = 64
	writeTimeout = 5 * time.Second
)

// WatchHandler streams applied commits to WebSocket clients.
type WatchHandler struct {
	// Store is the container whose commits are streamed.
	Store Store
	// Logger receives connection lifecycle and drop events.
	Logger *zap.Logger
	// Upgrader performs the WebSocket handshake.
	Upgrader websocket.Upgrader
}

// NewWatchHandler returns a WatchHandler with a default upgrader.
func NewWatchHandler(s Store, logger *zap.Logger) *WatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatchHandler{
		Store:  s,
		Logger: logger,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Watch upgrades the connection and sends one JSON text message per commit.
// A client that falls behind by more than the buffer loses events.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an error status
		return
	}
	defer conn.Close()

	client := middleware.GetClientIDFromContext(r.Context())
	log := h.Logger.With(zap.String("client", client))
	log.Info("watch started")

	events := make(chan models.CommitEvent, watchBuffer)
	unsubscribe := h.Store.Subscribe(func(e models.CommitEvent) {
		select {
		case events <- e:
		default:
			log.Warn("watch client too slow, dropping event", zap.String("mutation", string(e.Mutation)))
		}
	})
	defer unsubscribe()

	// the read loop only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			log.Info("watch stopped")
			return
		case <-r.Context().Done():
			return
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				log.Error("failed to encode commit event", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Info("watch write failed", zap.Error(err))
				return
			}
		}
	}
}
