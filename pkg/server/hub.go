package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/energylife/energylife/pkg/log"
	"github.com/gorilla/websocket"
)

const (
	// TypeResult carries a freshly rendered #live fragment.
	TypeResult = "result"

	wsSendBuffer = 16
	wsWriteWait  = 10 * time.Second
)

// Envelope is the JSON frame pushed to the page.
type Envelope struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	HTML string `json:"html"`
}

// wsClient is one open tab.
type wsClient struct {
	hub     *Hub
	session string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub keeps the open websockets of every session so a result computed in one
// tab shows up in the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*wsClient]bool
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*wsClient]bool),
	}
}

func (h *Hub) Register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[c.session]
	if !ok {
		clients = make(map[*wsClient]bool)
		h.sessions[c.session] = clients
	}
	clients[c] = true
}

func (h *Hub) Unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessions[c.session]
	if !ok {
		return
	}
	if _, ok := clients[c]; ok {
		delete(clients, c)
		close(c.send)
	}
	if len(clients) == 0 {
		delete(h.sessions, c.session)
	}
}

// Broadcast sends msg to every tab of session. Tabs that are too far behind
// miss the message; the next one carries the full fragment anyway.
func (h *Hub) Broadcast(ctx context.Context, session string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[session] {
		select {
		case c.send <- msg:
		default:
			log.Ctx(ctx).DebugContext(ctx, "client buffer full, dropping message")
		}
	}
}

// ClientCount returns the number of open tabs of session.
func (h *Hub) ClientCount(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[session])
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.sessions {
		for c := range clients {
			close(c.send)
		}
		delete(h.sessions, id)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(wsWriteWait),
	)
}

// readPump only waits for the tab to go away. The page never sends anything.
func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Ctx(ctx).DebugContext(ctx, "websocket read error", slog.Any("error", err))
			}
			return
		}
	}
}

// the default origin check only accepts same-host upgrades
var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request, sess *session) {
	ctx := r.Context()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Ctx(ctx).DebugContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := &wsClient{
		hub:     s.hub,
		session: sess.id,
		conn:    conn,
		send:    make(chan []byte, wsSendBuffer),
	}
	s.hub.Register(c)
	go c.writePump()
	c.readPump(context.WithoutCancel(ctx))
}

// push renders the live fragment for sess and sends it to the session's tabs.
func (s *Server) push(ctx context.Context, sess *session) {
	if s.hub.ClientCount(sess.id) == 0 {
		return
	}
	p := s.page(sess, nil)
	html, err := s.renderer.FragmentHTML(p)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to render fragment", slog.Any("error", err))
		return
	}
	msg, err := json.Marshal(Envelope{Type: TypeResult, Seq: p.Seq, HTML: html})
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to marshal envelope", slog.Any("error", err))
		return
	}
	s.hub.Broadcast(ctx, sess.id, msg)
}
