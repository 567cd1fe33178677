package dto

import "time"

type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode,omitempty"`
}

type PresenceResponse struct {
	Connected         bool     `json:"connected"`
	Clients           []string `json:"clients"`
	Connections       int      `json:"connections"`
	Bindings          int      `json:"bindings"`
	Broadcasts        int64    `json:"broadcasts"`
	BroadcastFailures int64    `json:"broadcast_failures"`
}

type ConnectionInfo struct {
	ID         string    `json:"id"`
	Role       string    `json:"role"`
	RemoteAddr string    `json:"remote_addr"`
	AdmittedAt time.Time `json:"admitted_at"`
}

type ConnectionsResponse struct {
	Connections []ConnectionInfo `json:"connections"`
	Count       int              `json:"count"`
}

type AgentInfo struct {
	AgentID      string    `json:"agent_id"`
	ConnectionID string    `json:"connection_id"`
	Credential   string    `json:"credential"`
	ConnectedAt  time.Time `json:"connected_at"`
}

type AgentsResponse struct {
	Agents []AgentInfo `json:"agents"`
	Count  int         `json:"count"`
}

type BindingInfo struct {
	Credential string    `json:"credential"`
	AgentID    string    `json:"agent_id"`
	BoundAt    time.Time `json:"bound_at"`
}

type BindingsResponse struct {
	Bindings []BindingInfo `json:"bindings"`
	Count    int           `json:"count"`
}

type AuthCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
