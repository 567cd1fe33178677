package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/authcode"
	"github.com/EternisAI/print-relay/internal/binding"
	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/EternisAI/print-relay/internal/transport/ws"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "admin-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	codes := authcode.NewStore(authcode.DefaultTTL, 0)
	bindings := binding.NewTable()
	verifier := auth.NewCodeVerifier(codes, bindings)
	b := broker.New(verifier, bindings, nil, broker.DefaultConfig(auth.ModeCode))

	engine := gin.New()
	SetupRoute(engine, &Services{
		Broker:     b,
		WebSocket:  ws.NewHandler(b, ws.Config{}),
		CodeIssuer: verifier,
	}, testAPIKey)

	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		b.Shutdown()
		srv.Close()
	})
	return srv
}

func TestHealth(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "code", body["mode"])
}

func TestWebSocketRoutes(t *testing.T) {
	srv := newServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	for _, path := range []string{"/", "/ws"} {
		conn, _, err := websocket.DefaultDialer.Dial(base+path, nil)
		require.NoError(t, err, path)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"get_auth_code"}`)))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var reply map[string]any
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "auth_code_generated", reply["type"], path)
		assert.Len(t, reply["code"], 8)
		conn.Close()
	}
}

func TestAdminRequiresAPIKey(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/admin/presence")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest("GET", srv.URL+"/admin/presence", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOptionalRoutesAbsent(t *testing.T) {
	srv := newServer(t)

	for _, path := range []string{"/admin/users", "/admin/tokens"} {
		req, _ := http.NewRequest("POST", srv.URL+path, strings.NewReader(`{}`))
		req.Header.Set("X-API-Key", testAPIKey)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}
