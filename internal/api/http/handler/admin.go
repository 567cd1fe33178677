package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	broker *broker.Broker
	codes  auth.CodeIssuer
}

// NewAdminHandler creates the inspection handler. codes is nil when the
// broker does not use pairing codes.
func NewAdminHandler(b *broker.Broker, codes auth.CodeIssuer) *AdminHandler {
	return &AdminHandler{
		broker: b,
		codes:  codes,
	}
}

func (h *AdminHandler) Presence(ctx *gin.Context) {
	presence := h.broker.Presence()
	stats := h.broker.Stats()

	ctx.JSON(http.StatusOK, dto.PresenceResponse{
		Connected:         presence.Connected,
		Clients:           presence.Clients,
		Connections:       stats.Connections,
		Bindings:          stats.Bindings,
		Broadcasts:        stats.Broadcasts,
		BroadcastFailures: stats.BroadcastFailures,
	})
}

func (h *AdminHandler) ListConnections(ctx *gin.Context) {
	infos := h.broker.Connections()

	connections := make([]dto.ConnectionInfo, 0, len(infos))
	for _, info := range infos {
		connections = append(connections, dto.ConnectionInfo{
			ID:         info.ID,
			Role:       string(info.Role),
			RemoteAddr: info.RemoteAddr,
			AdmittedAt: info.AdmittedAt,
		})
	}

	ctx.JSON(http.StatusOK, dto.ConnectionsResponse{
		Connections: connections,
		Count:       len(connections),
	})
}

func (h *AdminHandler) ListAgents(ctx *gin.Context) {
	regs := h.broker.Registrations()

	agents := make([]dto.AgentInfo, 0, len(regs))
	for _, reg := range regs {
		agents = append(agents, dto.AgentInfo{
			AgentID:      reg.AgentID,
			ConnectionID: reg.ConnectionID,
			Credential:   h.displayCredential(reg.Credential),
			ConnectedAt:  reg.ConnectedAt,
		})
	}

	ctx.JSON(http.StatusOK, dto.AgentsResponse{
		Agents: agents,
		Count:  len(agents),
	})
}

func (h *AdminHandler) ListBindings(ctx *gin.Context) {
	list := h.broker.Bindings()

	bindings := make([]dto.BindingInfo, 0, len(list))
	for _, b := range list {
		bindings = append(bindings, dto.BindingInfo{
			Credential: h.displayCredential(b.Credential),
			AgentID:    b.AgentID,
			BoundAt:    b.BoundAt,
		})
	}

	ctx.JSON(http.StatusOK, dto.BindingsResponse{
		Bindings: bindings,
		Count:    len(bindings),
	})
}

func (h *AdminHandler) IssueAuthCode(ctx *gin.Context) {
	if h.codes == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "auth codes are not used in account mode"})
		return
	}

	code, err := h.codes.Issue()
	if err != nil {
		slog.Error("Failed to issue auth code", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	slog.Info("Auth code issued via admin API", "client_ip", ctx.ClientIP(), "expires_at", code.ExpiresAt)
	ctx.JSON(http.StatusCreated, dto.AuthCodeResponse{
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	})
}

// displayCredential masks pairing codes, which stay valid for as long as
// their binding exists. Usernames are shown as is.
func (h *AdminHandler) displayCredential(credential string) string {
	if h.broker.Mode() == auth.ModeAccount {
		return credential
	}
	return maskCode(credential)
}

func maskCode(code string) string {
	const visible = 2
	if len(code) <= visible {
		return strings.Repeat("*", len(code))
	}
	return strings.Repeat("*", len(code)-visible) + code[len(code)-visible:]
}
