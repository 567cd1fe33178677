// Package broker is the rendezvous point between requesters and print agents.
// It tracks every live connection, authenticates agents, keeps the
// credential to agent bindings and routes print jobs.
package broker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/binding"
	"github.com/EternisAI/print-relay/internal/protocol"
	"github.com/google/uuid"
)

// Forwarder hands a job to the fixed local fallback endpoint. It reports
// success and never returns an error.
type Forwarder interface {
	Forward(ctx context.Context, payload []byte) bool
}

type Config struct {
	// FallbackEnabled lets the router try the Forwarder when no live agent
	// is bound to a job's credential.
	FallbackEnabled bool
}

// DefaultConfig returns the routing policy a mode ships with: fallback in
// code mode, none in account mode.
func DefaultConfig(mode auth.Mode) Config {
	return Config{FallbackEnabled: mode == auth.ModeCode}
}

type Broker struct {
	verifier auth.Verifier
	bindings *binding.Table
	fallback Forwarder
	config   Config
	now      func() time.Time

	mu            sync.RWMutex
	connections   map[string]*Connection
	registrations map[string]*Registration
	regSeq        uint64

	// notifyMu keeps presence broadcasts from interleaving.
	notifyMu          sync.Mutex
	broadcasts        atomic.Int64
	broadcastFailures atomic.Int64
}

// New creates a Broker. fallback may be nil, which disables the fallback
// path regardless of config.
func New(verifier auth.Verifier, bindings *binding.Table, fallback Forwarder, config Config) *Broker {
	return &Broker{
		verifier:      verifier,
		bindings:      bindings,
		fallback:      fallback,
		config:        config,
		now:           time.Now,
		connections:   make(map[string]*Connection),
		registrations: make(map[string]*Registration),
	}
}

func (b *Broker) Mode() auth.Mode {
	return b.verifier.Mode()
}

// Admit registers a freshly established transport as an Unclassified connection.
func (b *Broker) Admit(t Transport) *Connection {
	c := &Connection{
		ID:         uuid.New().String(),
		RemoteAddr: t.RemoteAddr(),
		AdmittedAt: b.now(),
		transport:  t,
		role:       RoleUnclassified,
	}

	b.mu.Lock()
	b.connections[c.ID] = c
	total := len(b.connections)
	b.mu.Unlock()

	slog.Info("Connection admitted", "conn_id", c.ID, "remote_addr", c.RemoteAddr, "total_connections", total)
	return c
}

// Close evicts c. If c was an agent, every registration still pointing at c
// is removed and a presence broadcast follows. Registrations are matched by
// connection id, never by agent id, so a newer connection for the same agent
// is left alone. Closing twice is a no-op.
func (b *Broker) Close(c *Connection) {
	c.markClosed()

	b.mu.Lock()
	if _, ok := b.connections[c.ID]; !ok {
		b.mu.Unlock()
		return
	}

	var removed []string
	if c.role == RoleAgent {
		for agentID, reg := range b.registrations {
			if reg.ConnectionID == c.ID {
				delete(b.registrations, agentID)
				removed = append(removed, agentID)
			}
		}
	}
	delete(b.connections, c.ID)
	total := len(b.connections)
	b.mu.Unlock()

	if err := c.transport.Close(); err != nil {
		slog.Debug("Transport close returned error", "conn_id", c.ID, "error", err)
	}

	if c.role == RoleAgent {
		slog.Info("Agent connection closed", "conn_id", c.ID, "agents_removed", removed, "total_connections", total)
	} else {
		slog.Info("Connection closed", "conn_id", c.ID, "total_connections", total)
	}

	if len(removed) > 0 {
		b.notify("agent disconnected")
	}
}

// Shutdown closes every connection.
func (b *Broker) Shutdown() {
	b.mu.RLock()
	conns := make([]*Connection, 0, len(b.connections))
	for _, c := range b.connections {
		conns = append(conns, c)
	}
	b.mu.RUnlock()

	for _, c := range conns {
		b.Close(c)
	}
	slog.Info("Broker stopped", "closed_connections", len(conns))
}

// Handle processes one inbound frame from c and writes the reply, if any, to
// c only. The caller must not invoke Handle concurrently for the same
// connection. A failure never ends the connection.
func (b *Broker) Handle(ctx context.Context, c *Connection, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while handling message", "conn_id", c.ID, "panic", r, "stack", string(debug.Stack()))
			b.reply(c, protocol.ErrorReply("failed to process request"))
		}
	}()

	msg, err := protocol.Decode(raw)
	if err != nil {
		slog.Warn("Malformed message", "conn_id", c.ID, "error", err)
		b.reply(c, protocol.ErrorReply("invalid JSON message"))
		return
	}

	slog.Debug("Message received", "conn_id", c.ID, "type", msg.Type)

	var reply any
	switch msg.Type {
	case protocol.TypeGetAuthCode:
		reply, err = b.handleGetAuthCode(c)
	case protocol.TypeClientAuth:
		reply, err = b.handleClientAuth(ctx, c, msg)
	case protocol.TypeCheckClientStatus:
		reply, err = b.handleCheckStatus(ctx, msg)
	case protocol.TypePrintRequest:
		reply, err = b.handlePrintRequest(ctx, c, msg, raw)
	case protocol.TypePrintQueued, protocol.TypeError:
		if b.roleOf(c) == RoleAgent {
			slog.Info("Agent job result", "conn_id", c.ID, "type", msg.Type, "message", msg.Message)
			return
		}
		err = ErrUnknownType
	default:
		err = ErrUnknownType
	}

	if errors.Is(err, ErrConnectionClosed) {
		slog.Debug("Connection closed while handling message", "conn_id", c.ID, "type", msg.Type)
		return
	}
	if err != nil {
		reply = errorReply(c, msg.Type, err)
	}
	if reply != nil {
		b.reply(c, reply)
	}
}

func errorReply(c *Connection, msgType string, err error) protocol.Reply {
	switch {
	case errors.Is(err, ErrUnknownType):
		slog.Warn("Unknown message type", "conn_id", c.ID, "type", msgType)
		return protocol.ErrorReply("unknown request type")
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrUnsupported):
		return protocol.ErrorReply(err.Error())
	case errors.Is(err, auth.ErrInvalidCredential):
		return protocol.ErrorReply("invalid username or password")
	case errors.Is(err, ErrNoAgent):
		return protocol.ErrorReply("unable to reach a print agent; make sure the agent is running and bound")
	case errors.Is(err, ErrDelivery):
		return protocol.ErrorReply("failed to send print job to the agent")
	default:
		slog.Error("Failed to process message", "conn_id", c.ID, "type", msgType, "error", err)
		return protocol.ErrorReply("failed to process request")
	}
}

func (b *Broker) reply(c *Connection, v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		slog.Error("Failed to encode reply", "conn_id", c.ID, "error", err)
		return
	}
	if err := c.Send(data); err != nil {
		slog.Debug("Failed to send reply", "conn_id", c.ID, "error", err)
	}
}

func (b *Broker) roleOf(c *Connection) Role {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return c.role
}

// Connections lists the registry ordered by admission time.
func (b *Broker) Connections() []ConnectionInfo {
	b.mu.RLock()
	result := make([]ConnectionInfo, 0, len(b.connections))
	for _, c := range b.connections {
		result = append(result, ConnectionInfo{
			ID:         c.ID,
			Role:       c.role,
			RemoteAddr: c.RemoteAddr,
			AdmittedAt: c.AdmittedAt,
		})
	}
	b.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].AdmittedAt.Equal(result[j].AdmittedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].AdmittedAt.Before(result[j].AdmittedAt)
	})
	return result
}

// Registrations lists the live agent registrations ordered by agent id.
func (b *Broker) Registrations() []Registration {
	b.mu.RLock()
	result := make([]Registration, 0, len(b.registrations))
	for _, reg := range b.registrations {
		result = append(result, *reg)
	}
	b.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].AgentID < result[j].AgentID })
	return result
}

func (b *Broker) Bindings() []binding.Binding {
	return b.bindings.List()
}

type Stats struct {
	Connections       int
	Agents            int
	Bindings          int
	Broadcasts        int64
	BroadcastFailures int64
}

func (b *Broker) Stats() Stats {
	b.mu.RLock()
	s := Stats{
		Connections: len(b.connections),
		Agents:      len(b.registrations),
	}
	b.mu.RUnlock()

	s.Bindings = b.bindings.Len()
	s.Broadcasts = b.broadcasts.Load()
	s.BroadcastFailures = b.broadcastFailures.Load()
	return s
}
