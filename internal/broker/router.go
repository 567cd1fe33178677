package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/protocol"
)

func (b *Broker) handleGetAuthCode(c *Connection) (any, error) {
	issuer, ok := b.verifier.(auth.CodeIssuer)
	if !ok {
		return nil, fmt.Errorf("%w: auth codes are not used with account login", ErrUnsupported)
	}

	code, err := issuer.Issue()
	if err != nil {
		return nil, fmt.Errorf("issue auth code: %w", err)
	}

	slog.Info("Auth code issued", "conn_id", c.ID, "expires_at", code.ExpiresAt)
	return protocol.Reply{
		Type:    protocol.TypeAuthCodeGenerated,
		Code:    code.Code,
		Message: "enter this code in the print agent",
	}, nil
}

func (b *Broker) authErrorMessage() string {
	if b.verifier.Mode() == auth.ModeAccount {
		return "invalid username or password"
	}
	return "invalid or expired code, request a new one"
}

// handleClientAuth replies directly so that auth_success reaches the agent
// before the presence broadcast does.
func (b *Broker) handleClientAuth(ctx context.Context, c *Connection, msg protocol.Inbound) (any, error) {
	if msg.ClientID == "" {
		return protocol.NewReply(protocol.TypeAuthError, "client_id is required"), nil
	}

	cred := auth.Credential{Username: msg.Username, Password: msg.Password}
	if err := b.verifier.Verify(ctx, cred); err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			slog.Info("Agent authentication rejected", "conn_id", c.ID, "agent_id", msg.ClientID, "error", err)
		} else {
			slog.Error("Agent authentication failed", "conn_id", c.ID, "agent_id", msg.ClientID, "error", err)
		}
		return protocol.NewReply(protocol.TypeAuthError, b.authErrorMessage()), nil
	}

	key := b.verifier.BindingKey(cred)
	if err := b.bind(c, key, msg.ClientID); err != nil {
		return nil, err
	}
	b.verifier.Bound(cred)

	b.reply(c, protocol.NewReply(protocol.TypeAuthSuccess, "authenticated"))
	b.notify("agent connected")
	return nil, nil
}

func (b *Broker) bind(c *Connection, key, agentID string) error {
	now := b.now()

	b.mu.Lock()
	if _, ok := b.connections[c.ID]; !ok {
		b.mu.Unlock()
		return ErrConnectionClosed
	}
	superseded := ""
	if old, ok := b.registrations[agentID]; ok && old.ConnectionID != c.ID {
		superseded = old.ConnectionID
	}
	b.registrations[agentID] = &Registration{
		AgentID:      agentID,
		ConnectionID: c.ID,
		Credential:   key,
		ConnectedAt:  now,
		seq:          b.regSeq,
	}
	b.regSeq++
	c.role = RoleAgent
	b.mu.Unlock()

	previous, replaced := b.bindings.Bind(key, agentID, now)

	attrs := []any{"conn_id", c.ID, "agent_id", agentID}
	if superseded != "" {
		attrs = append(attrs, "superseded_conn_id", superseded)
	}
	if replaced && previous != agentID {
		attrs = append(attrs, "previous_agent_id", previous)
	}
	slog.Info("Agent registered", attrs...)
	return nil
}

func (b *Broker) handleCheckStatus(ctx context.Context, msg protocol.Inbound) (any, error) {
	if b.verifier.Mode() != auth.ModeAccount || msg.Username == "" {
		return b.presence(""), nil
	}

	cred := auth.Credential{Username: msg.Username, Password: msg.Password}
	if err := b.verifyRequester(ctx, cred); err != nil {
		return nil, err
	}

	status := protocol.ScopedStatus{Type: protocol.TypeClientStatus}
	if agentID, ok := b.bindings.Lookup(b.verifier.BindingKey(cred)); ok {
		b.mu.RLock()
		_, live := b.registrations[agentID]
		b.mu.RUnlock()
		if live {
			status.Connected = true
			status.ClientID = &agentID
		}
	}
	return status, nil
}

// verifyRequester checks the credential a requester addressed a job or status
// query with. Any failure, including an unreachable identity system, is a
// rejection.
func (b *Broker) verifyRequester(ctx context.Context, cred auth.Credential) error {
	if err := b.verifier.Verify(ctx, cred); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredential) {
			slog.Error("Requester verification failed", "error", err)
		}
		return fmt.Errorf("%w: %v", auth.ErrInvalidCredential, err)
	}
	return nil
}

func (b *Broker) handlePrintRequest(ctx context.Context, c *Connection, msg protocol.Inbound, raw []byte) (any, error) {
	if !msg.HasContent() {
		return nil, fmt.Errorf("%w: content", ErrMissingField)
	}

	cred := auth.Credential{Username: msg.Username, Password: msg.Password}
	if b.verifier.Mode() == auth.ModeAccount {
		if err := b.verifyRequester(ctx, cred); err != nil {
			return nil, err
		}
	}

	key := b.verifier.BindingKey(cred)
	if target, agentID := b.resolve(key); target != nil {
		if err := target.Send(raw); err != nil {
			slog.Warn("Print job delivery failed", "conn_id", c.ID, "agent_id", agentID, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		slog.Info("Print job forwarded", "conn_id", c.ID, "agent_id", agentID, "bytes", len(raw))
		return protocol.NewReply(protocol.TypePrintQueued, "print job sent to the print agent"), nil
	}

	if !b.config.FallbackEnabled || b.fallback == nil {
		slog.Info("No print agent for job", "conn_id", c.ID)
		return nil, ErrNoAgent
	}

	if b.fallback.Forward(ctx, raw) {
		slog.Info("Print job forwarded to fallback", "conn_id", c.ID, "bytes", len(raw))
		return protocol.NewReply(protocol.TypePrintQueued, "print job sent to the local print service"), nil
	}
	slog.Warn("Fallback forward failed", "conn_id", c.ID)
	return nil, fmt.Errorf("%w: fallback unavailable", ErrNoAgent)
}

// resolve finds the live connection serving key. In code mode the
// registrations are scanned for the credential they authenticated with and
// the most recent one wins; in account mode the binding table names the agent.
func (b *Broker) resolve(key string) (*Connection, string) {
	if key == "" {
		return nil, ""
	}

	if b.verifier.Mode() == auth.ModeAccount {
		agentID, ok := b.bindings.Lookup(key)
		if !ok {
			return nil, ""
		}
		b.mu.RLock()
		defer b.mu.RUnlock()
		reg, ok := b.registrations[agentID]
		if !ok {
			return nil, ""
		}
		return b.connections[reg.ConnectionID], agentID
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var best *Registration
	for _, reg := range b.registrations {
		if reg.Credential != key {
			continue
		}
		if best == nil || reg.seq > best.seq {
			best = reg
		}
	}
	if best == nil {
		return nil, ""
	}
	return b.connections[best.ConnectionID], best.AgentID
}

// presence builds the broker-wide snapshot of registered agents.
func (b *Broker) presence(message string) protocol.Presence {
	b.mu.RLock()
	clients := make([]string, 0, len(b.registrations))
	for agentID := range b.registrations {
		clients = append(clients, agentID)
	}
	b.mu.RUnlock()

	sort.Strings(clients)
	return protocol.Presence{
		Type:      protocol.TypeClientStatus,
		Connected: len(clients) > 0,
		Clients:   clients,
		Message:   message,
	}
}

// Presence returns the current snapshot without broadcasting it.
func (b *Broker) Presence() protocol.Presence {
	return b.presence("")
}

// notify sends the presence snapshot to every connection. A failed recipient
// is logged and counted; the others still receive it.
func (b *Broker) notify(message string) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	snapshot := b.presence(message)
	data, err := protocol.Encode(snapshot)
	if err != nil {
		slog.Error("Failed to encode presence", "error", err)
		return
	}

	b.mu.RLock()
	recipients := make([]*Connection, 0, len(b.connections))
	for _, c := range b.connections {
		recipients = append(recipients, c)
	}
	b.mu.RUnlock()

	b.broadcasts.Add(1)
	failed := 0
	for _, c := range recipients {
		if err := c.Send(data); err != nil {
			failed++
			slog.Debug("Presence delivery failed", "conn_id", c.ID, "error", err)
		}
	}
	if failed > 0 {
		b.broadcastFailures.Add(int64(failed))
	}

	slog.Info("Presence broadcast", "message", message, "agents", snapshot.Clients, "recipients", len(recipients), "failed", failed)
}
