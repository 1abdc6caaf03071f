package clients

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Role is what a connection is for.
type Role string

const (
	// RoleControl connections send commands and receive replies.
	RoleControl Role = "control"
	// RoleEvents connections receive every dispatch event.
	RoleEvents Role = "events"
)

const (
	writeTimeout = 5 * time.Second

	// PongWait is how long a connection may stay silent before its read
	// deadline expires. Pings go out at nine tenths of it.
	PongWait = 60 * time.Second

	queueSize = 64
)

// ErrSlowClient is reported by Broadcast when a client's queue is full.
var ErrSlowClient = errors.New("clients: send queue full")

// Client is one websocket connection. gorilla allows a single concurrent
// writer, so all writes go through Send.
type Client struct {
	ID   string
	Role Role
	Conn *websocket.Conn

	writeMu   sync.Mutex
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Send writes one text message.
func (c *Client) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}

// Enqueue hands payload to the client's writer without blocking.
func (c *Client) Enqueue(payload []byte) error {
	select {
	case c.queue <- payload:
		return nil
	default:
		return ErrSlowClient
	}
}

func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// writeLoop drains the queue and keeps the connection alive with pings. A
// failed write closes the connection so its read loop unregisters it.
func (c *Client) writeLoop(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.queue:
			if err := c.Send(payload); err != nil {
				c.Conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.Conn.Close()
				return
			}
		}
	}
}

func (c *Client) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Manager tracks connected clients keyed by id.
type Manager struct {
	// PingPeriod is read by Add; it must stay below the read deadline the
	// transport sets.
	PingPeriod time.Duration

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewManager() *Manager {
	return &Manager{
		PingPeriod: PongWait * 9 / 10,
		clients:    make(map[string]*Client),
	}
}

// Add registers conn under a fresh id and starts its writer.
func (m *Manager) Add(role Role, conn *websocket.Conn) *Client {
	c := &Client{
		ID:    uuid.NewString(),
		Role:  role,
		Conn:  conn,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	go c.writeLoop(m.PingPeriod)
	return c
}

// Remove unregisters id and stops its writer.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	c, ok := m.clients[id]
	delete(m.clients, id)
	m.mu.Unlock()
	if ok {
		c.stop()
	}
}

// Count returns the number of connected clients of any role.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Broadcast queues payload for every client with the given role and never
// blocks on the network. Clients whose queue is full are returned by id; the
// caller decides what to drop.
func (m *Manager) Broadcast(role Role, payload []byte) map[string]error {
	var errs map[string]error
	for _, c := range m.snapshot(role) {
		if err := c.Enqueue(payload); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[c.ID] = err
		}
	}
	return errs
}

// CloseAll closes every connection; their read loops then unregister them.
func (m *Manager) CloseAll() {
	for _, c := range m.snapshot("") {
		c.Conn.Close()
	}
}

// snapshot copies the clients with role, or all of them when role is empty.
func (m *Manager) snapshot(role Role) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		if role == "" || c.Role == role {
			out = append(out, c)
		}
	}
	return out
}

// Disconnect closes the connection of id; its read loop then unregisters it.
func (m *Manager) Disconnect(id string) {
	m.mu.RLock()
	c, ok := m.clients[id]
	m.mu.RUnlock()
	if ok {
		c.Conn.Close()
	}
}
