package broker

import (
	"fmt"
	"sync"
	"time"
)

// Transport is one established bidirectional message channel. WriteMessage
// sends a single text frame and must bound its own duration.
type Transport interface {
	WriteMessage(data []byte) error
	Close() error
	RemoteAddr() string
}

// Role is what a connection turned out to be. Every connection starts
// Unclassified and becomes Agent on its first successful authentication. A
// connection that never authenticates is treated as a requester.
type Role string

const (
	RoleUnclassified Role = "unclassified"
	RoleAgent        Role = "agent"
)

type Connection struct {
	ID         string
	RemoteAddr string
	AdmittedAt time.Time

	transport Transport

	// role is guarded by Broker.mu.
	role Role

	// writeMu serializes frames and makes a send mutually exclusive with
	// teardown: once closed is set no further frame is written.
	writeMu sync.Mutex
	closed  bool
}

// Send writes one frame unless the connection is being torn down.
func (c *Connection) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	if err := c.transport.WriteMessage(data); err != nil {
		return fmt.Errorf("write to connection %s: %w", c.ID, err)
	}
	return nil
}

// markClosed waits for an in-flight Send to finish and blocks all later ones.
// It reports whether this call performed the transition.
func (c *Connection) markClosed() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return false
	}
	c.closed = true
	return true
}

// ConnectionInfo is a point-in-time view of a registry entry.
type ConnectionInfo struct {
	ID         string
	Role       Role
	RemoteAddr string
	AdmittedAt time.Time
}

// Registration ties an agent id to the connection it authenticated on.
type Registration struct {
	AgentID      string
	ConnectionID string
	Credential   string
	ConnectedAt  time.Time

	// seq orders registrations that share a timestamp.
	seq uint64
}
