package realtime

import (
	"errors"
	"sync"
	"time"
)

// Socket is the transport side of a live connection. Satisfied by
// *websocket.Conn; tests substitute a recording fake.
type Socket interface {
	WriteJSON(v interface{}) error
	Close() error
}

// LiveMessage is the tagged wire payload pushed to clients. Clients must
// tolerate unknown additional fields and de-duplicate by EventID before
// rendering.
type LiveMessage struct {
	Kind      string      `json:"kind"`
	EventID   string      `json:"event_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// ErrSendQueueFull reports that a connection's outbound queue is saturated.
// The payload is dropped for that connection only; the durable notification
// remains its fallback read path.
var ErrSendQueueFull = errors.New("send queue full")

// Connection is one registered live client. All pushes go through a single
// buffered channel drained by one writer goroutine, so payloads for a given
// connection are always written in enqueue order.
type Connection struct {
	ID       string
	Identity Identity

	socket Socket
	send   chan LiveMessage

	mu     sync.Mutex
	closed bool
}

func newConnection(id string, identity Identity, socket Socket, buffer int) *Connection {
	if buffer <= 0 {
		buffer = 32
	}
	return &Connection{
		ID:       id,
		Identity: identity,
		socket:   socket,
		send:     make(chan LiveMessage, buffer),
	}
}

// Enqueue hands a message to the writer goroutine without blocking. A
// dispatch may hold a member snapshot taken before the connection was
// unregistered, so enqueueing after close is a silent drop, never a panic.
func (c *Connection) Enqueue(msg LiveMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// writePump drains the send queue onto the socket. Runs in its own
// goroutine for the lifetime of the connection.
func (c *Connection) writePump() {
	for msg := range c.send {
		if err := c.socket.WriteJSON(msg); err != nil {
			return
		}
	}
}

// close shuts the queue and the underlying socket exactly once. The closed
// flag is flipped under the same mutex Enqueue holds, so no send can race
// the channel close.
func (c *Connection) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.socket.Close()
}
