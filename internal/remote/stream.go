package remote

import (
	"net/http"
	"sync"
	"time"

	"postdeck/internal/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Snapshot
	done chan struct{}
}

// hub fans snapshots out to stream clients. A client that falls behind is
// dropped rather than blocking the presenter.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

// join registers c and queues the current snapshot while holding the lock
// broadcast takes, so a concurrent publish reaches c one way or the other.
func (h *hub) join(c *client, current func() (Snapshot, bool)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if snap, ok := current(); ok {
		c.send <- snap
	}
}

// c.send is only ever closed under h.mu.
func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) broadcast(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- snap:
		default:
			logging.Get(logging.CategoryRemote).Warn("client %s too slow, dropping", c.id)
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := ws.WriteJSON(v)
	if err != nil {
		logging.Get(logging.CategoryRemote).Warn("failed to write stream JSON: %v", err)
	}
	return err
}

// ServeWS streams a snapshot on connect and after every position change.
// GET /ws
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Get(logging.CategoryRemote).Error("failed to upgrade the websocket: %v", err)
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: ws,
		send: make(chan Snapshot, clientSend),
		done: make(chan struct{}),
	}
	s.hub.join(c, s.Snapshot)
	logging.Remote("stream client %s connected from %s", c.id, r.RemoteAddr)

	go c.writeLoop()

	// Incoming frames are ignored; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(c)
	<-c.done
	logging.Remote("stream client %s disconnected", c.id)
}

func (c *client) writeLoop() {
	defer close(c.done)
	defer c.conn.Close()
	for snap := range c.send {
		if err := sendJSON(c.conn, snap); err != nil {
			// Unblock the reader; it removes the client.
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
