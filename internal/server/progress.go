package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/incgraph/incgraph/internal/crawl"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// hub copies crawl events to every connected websocket client.
type hub struct {
	mu      sync.Mutex
	clients map[chan crawl.Event]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[chan crawl.Event]struct{})}
}

// run drains src until it closes. Slow clients lose events rather than
// stalling the feed.
func (h *hub) run(src <-chan crawl.Event) {
	for ev := range src {
		h.mu.Lock()
		for ch := range h.clients {
			select {
			case ch <- ev:
			default:
			}
		}
		h.mu.Unlock()
	}
}

func (h *hub) subscribe() chan crawl.Event {
	ch := make(chan crawl.Event, 16)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan crawl.Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// handleProgress upgrades the connection and streams crawl events as JSON
// until the client goes away.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	conn, err := progressUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events := s.hub.subscribe()
	defer s.hub.unsubscribe(events)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// The client sends nothing meaningful; reading keeps pong handling
	// alive and notices the close frame.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
