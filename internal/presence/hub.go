package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

const (
	EventPresence     = "presence"
	EventStateChanged = "state_changed"

	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Event is pushed to every connection watching a document.
type Event struct {
	Type    string   `json:"type"`
	Kind    string   `json:"kind"`
	DocID   string   `json:"doc_id"`
	Editors []string `json:"editors,omitempty"`
	Actor   string   `json:"actor,omitempty"`
}

type client struct {
	conn *ws.Conn
	user string
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(ws.TextMessage, data)
}

// Hub tracks who has a document open. It is informational only and never
// blocks a transition.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	upgrader ws.Upgrader
	logg     *logger.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithAllowedOrigins restricts upgrades to the listed origins. An empty list
// accepts any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		allowed := map[string]struct{}{}
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				allowed[o] = struct{}{}
			}
		}
		if len(allowed) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
}

// NewHub creates an empty hub.
func NewHub(logg *logger.Logger, opts ...Option) *Hub {
	h := &Hub{
		rooms: map[string]map[*client]struct{}{},
		upgrader: ws.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logg: logg,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func roomKey(kind, docID string) string {
	return kind + ":" + docID
}

// Editors returns the distinct users watching a document, sorted.
func (h *Hub) Editors(kind, docID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.editorsLocked(roomKey(kind, docID))
}

func (h *Hub) editorsLocked(room string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for c := range h.rooms[room] {
		if _, ok := seen[c.user]; ok {
			continue
		}
		seen[c.user] = struct{}{}
		out = append(out, c.user)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) join(room string, c *client) {
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[*client]struct{}{}
	}
	h.rooms[room][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(room string, c *client) {
	h.mu.Lock()
	delete(h.rooms[room], c)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Notify tells watchers of a document that actor changed it.
func (h *Hub) Notify(kind, docID, actor string) {
	h.broadcast(Event{Type: EventStateChanged, Kind: kind, DocID: docID, Actor: actor})
}

func (h *Hub) announce(kind, docID string) {
	h.broadcast(Event{Type: EventPresence, Kind: kind, DocID: docID, Editors: h.Editors(kind, docID)})
}

func (h *Hub) broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	room := roomKey(evt.Kind, evt.DocID)
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.leave(room, c)
		}
	}
}

// Serve upgrades the request and keeps the connection registered until the
// peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, kind, docID, user string) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.warn(ctx, "presence upgrade failed", err)
		return
	}
	if user = strings.TrimSpace(user); user == "" {
		user = "anonymous"
	}
	c := &client{conn: conn, user: user}
	room := roomKey(kind, docID)
	h.join(room, c)
	h.announce(kind, docID)

	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
				c.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.leave(room, c)
	h.announce(kind, docID)
}

func (h *Hub) warn(ctx context.Context, msg string, err error) {
	if h.logg == nil {
		return
	}
	h.logg.Warn(h.logg.WithField(ctx, "error", err.Error()), msg)
}
