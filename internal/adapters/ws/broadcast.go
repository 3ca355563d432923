package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bft-labs/toiopose/internal/ports"
)

// sendBuffer is how many messages a client may lag before it is dropped.
const sendBuffer = 64

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Broadcaster fans messages out to websocket clients. Static messages are
// retained per path and replayed to clients that join later.
type Broadcaster struct {
	logger ports.Logger

	mu          sync.RWMutex
	clients     map[*client]bool
	static      map[string][]byte
	staticOrder []string
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger ports.Logger) *Broadcaster {
	return &Broadcaster{
		logger:  logger,
		clients: make(map[*client]bool),
		static:  make(map[string][]byte),
	}
}

// AddClient registers conn and replays retained static messages to it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := newClient(conn)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c] = true
	for _, path := range b.staticOrder {
		select {
		case c.send <- b.static[path]:
		default:
			// Client too slow, drop the replay
		}
	}
	return c
}

// RemoveClient unregisters c and closes its connection.
func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		c.close()
	}
	b.mu.Unlock()
}

// Retain stores msg as the static message for path and broadcasts it.
func (b *Broadcaster) Retain(path string, msg []byte) {
	b.mu.Lock()
	if _, ok := b.static[path]; !ok {
		b.staticOrder = append(b.staticOrder, path)
	}
	b.static[path] = msg
	b.mu.Unlock()
	b.Broadcast(msg)
}

// Broadcast sends msg to every client, disconnecting clients that cannot
// keep up. Sends happen under the read lock so no client is closed
// mid-send.
func (b *Broadcaster) Broadcast(msg []byte) {
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.Warn("ws client too slow, disconnecting", ports.String("remote", c.conn.RemoteAddr().String()))
		b.RemoveClient(c)
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// CloseAll disconnects every client.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		delete(b.clients, c)
		c.close()
	}
}
