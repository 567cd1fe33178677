package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EternisAI/print-relay/internal/accounts"
	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/authcode"
	"github.com/EternisAI/print-relay/internal/binding"
	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopTransport struct{}

func (nopTransport) WriteMessage([]byte) error { return nil }
func (nopTransport) Close() error              { return nil }
func (nopTransport) RemoteAddr() string        { return "192.0.2.10:4100" }

func newCodeBroker(t *testing.T) (*broker.Broker, *auth.CodeVerifier) {
	t.Helper()
	codes := authcode.NewStore(authcode.DefaultTTL, 0)
	codes.SetGenerator(func() (string, error) { return "12345678", nil })
	bindings := binding.NewTable()
	verifier := auth.NewCodeVerifier(codes, bindings)
	return broker.New(verifier, bindings, nil, broker.Config{}), verifier
}

func setupAdminRouter(h *AdminHandler) *gin.Engine {
	r := gin.New()
	r.GET("/admin/presence", h.Presence)
	r.GET("/admin/connections", h.ListConnections)
	r.GET("/admin/agents", h.ListAgents)
	r.GET("/admin/bindings", h.ListBindings)
	r.POST("/admin/auth-codes", h.IssueAuthCode)
	return r
}

func doRequest(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminHandler_CodeMode(t *testing.T) {
	b, verifier := newCodeBroker(t)
	r := setupAdminRouter(NewAdminHandler(b, verifier))

	w := doRequest(r, "POST", "/admin/auth-codes")
	require.Equal(t, http.StatusCreated, w.Code)
	var code dto.AuthCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &code))
	assert.Equal(t, "12345678", code.Code)
	assert.WithinDuration(t, time.Now().Add(authcode.DefaultTTL), code.ExpiresAt, 5*time.Second)

	agent := b.Admit(nopTransport{})
	requester := b.Admit(nopTransport{})
	b.Handle(context.Background(), agent, []byte(`{"type":"client_auth","password":"12345678","client_id":"A1"}`))

	w = doRequest(r, "GET", "/admin/presence")
	require.Equal(t, http.StatusOK, w.Code)
	var presence dto.PresenceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presence))
	assert.True(t, presence.Connected)
	assert.Equal(t, []string{"A1"}, presence.Clients)
	assert.Equal(t, 2, presence.Connections)
	assert.Equal(t, 1, presence.Bindings)
	assert.Equal(t, int64(1), presence.Broadcasts)

	w = doRequest(r, "GET", "/admin/connections")
	var conns dto.ConnectionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conns))
	require.Equal(t, 2, conns.Count)
	roles := map[string]string{}
	for _, c := range conns.Connections {
		roles[c.ID] = c.Role
		assert.Equal(t, "192.0.2.10:4100", c.RemoteAddr)
	}
	assert.Equal(t, "agent", roles[agent.ID])
	assert.Equal(t, "unclassified", roles[requester.ID])

	w = doRequest(r, "GET", "/admin/agents")
	var agents dto.AgentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agents))
	require.Equal(t, 1, agents.Count)
	assert.Equal(t, "A1", agents.Agents[0].AgentID)
	assert.Equal(t, "******78", agents.Agents[0].Credential)

	w = doRequest(r, "GET", "/admin/bindings")
	var bindings dto.BindingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bindings))
	require.Equal(t, 1, bindings.Count)
	assert.Equal(t, "******78", bindings.Bindings[0].Credential)
	assert.NotContains(t, w.Body.String(), "12345678")
}

func TestAdminHandler_AccountMode(t *testing.T) {
	bindings := binding.NewTable()
	b := broker.New(auth.NewAccountVerifier(accounts.Permissive{}, time.Second), bindings, nil, broker.Config{})
	r := setupAdminRouter(NewAdminHandler(b, nil))

	w := doRequest(r, "POST", "/admin/auth-codes")
	assert.Equal(t, http.StatusConflict, w.Code)

	agent := b.Admit(nopTransport{})
	b.Handle(context.Background(), agent, []byte(`{"type":"client_auth","username":"alice","password":"pw","client_id":"A9"}`))

	w = doRequest(r, "GET", "/admin/bindings")
	var resp dto.BindingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "alice", resp.Bindings[0].Credential)
	assert.Equal(t, "A9", resp.Bindings[0].AgentID)
}

func TestAdminHandler_EmptyPresence(t *testing.T) {
	b, verifier := newCodeBroker(t)
	r := setupAdminRouter(NewAdminHandler(b, verifier))

	w := doRequest(r, "GET", "/admin/presence")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"clients":[]`)
}

func TestMaskCode(t *testing.T) {
	assert.Equal(t, "******78", maskCode("12345678"))
	assert.Equal(t, "**", maskCode("12"))
	assert.Equal(t, "", maskCode(""))
}
