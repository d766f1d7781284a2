package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// Event is a named payload fanned out to every connected subscriber.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub fans events out to SSE subscribers. Emitting with no subscribers is a
// silent no-op, never an error.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	logger zerolog.Logger

	// buffer per subscriber; a slow consumer drops events rather than
	// blocking the emitter.
	bufSize int
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:    make(map[chan Event]struct{}),
		logger:  logger.With().Str("component", "broadcast").Logger(),
		bufSize: 16,
	}
}

// Emit delivers the event to all current subscribers without blocking.
func (h *Hub) Emit(name string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.subs) == 0 {
		return
	}

	ev := Event{Name: name, Payload: payload}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn().Str("event", name).Msg("subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount reports how many clients are currently connected.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, h.bufSize)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// ServeHTTP streams events to the client as server-sent events until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error": "streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	h.logger.Info().Str("remote", r.RemoteAddr).Msg("subscriber connected")

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info().Str("remote", r.RemoteAddr).Msg("subscriber disconnected")
			return
		case ev := <-ch:
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				h.logger.Error().Err(err).Str("event", ev.Name).Msg("payload marshal failed")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
			flusher.Flush()
		}
	}
}
