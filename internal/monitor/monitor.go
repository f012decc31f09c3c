// Package monitor serves the demuxer's runtime status: a JSON snapshot, the
// Prometheus registry, and a websocket feed of new-file events.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/rcarmo/go-xrit/internal/catalog"
	"github.com/rcarmo/go-xrit/internal/demux"
	"github.com/rcarmo/go-xrit/internal/logging"
	"github.com/rcarmo/go-xrit/internal/metrics"
)

const (
	webSocketReadBufferSize  = 1024
	webSocketWriteBufferSize = 8192

	// eventBuffer bounds the per-subscriber queue; slow subscribers drop
	// events rather than stall the feed.
	eventBuffer = 64

	recentFiles = 20
)

// Monitor fans demuxer state out to HTTP clients.
type Monitor struct {
	demux   *demux.Demuxer
	catalog *catalog.Catalog

	mu          sync.Mutex
	subscribers map[chan demux.FileEvent]struct{}
}

// New creates a monitor over the given demuxer. catalog may be nil.
func New(d *demux.Demuxer, c *catalog.Catalog) *Monitor {
	return &Monitor{
		demux:       d,
		catalog:     c,
		subscribers: make(map[chan demux.FileEvent]struct{}),
	}
}

// Publish delivers a file event to all websocket subscribers. Wire it to the
// demuxer's OnFile hook.
func (m *Monitor) Publish(event demux.FileEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up.
		}
	}
}

// Handler returns the monitor HTTP mux.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status.json", m.handleStatus)
	mux.HandleFunc("/events", m.handleEvents)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

type statusResponse struct {
	Stats  demux.Stats     `json:"stats"`
	Recent []catalog.Entry `json:"recent,omitempty"`
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Stats: m.demux.Stats()}

	if m.catalog != nil {
		entries, err := m.catalog.Recent(recentFiles)
		if err != nil {
			logging.Warn("monitor: %v", err)
		} else {
			resp.Recent = entries
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Warn("monitor: encode status: %v", err)
	}
}

func (m *Monitor) handleEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("monitor: upgrade websocket: %v", err)
		return
	}
	defer wsConn.Close()

	events := make(chan demux.FileEvent, eventBuffer)
	m.subscribe(events)
	defer m.unsubscribe(events)

	// Drain the client side so pings and closes are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := wsConn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event := <-events:
			if err := wsConn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

func (m *Monitor) subscribe(ch chan demux.FileEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[ch] = struct{}{}
}

func (m *Monitor) unsubscribe(ch chan demux.FileEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, ch)
}
