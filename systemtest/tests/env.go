package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	internalhttp "github.com/EternisAI/print-relay/internal/api/http"
	"github.com/EternisAI/print-relay/internal/api/http/handler"
	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/binding"
	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/EternisAI/print-relay/internal/transport/ws"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const AdminAPIKey = "system-test-key"

// Env is a broker served the same way the server binary serves it.
type Env struct {
	Broker *broker.Broker
	Router *gin.Engine
	WSURL  string
}

// StartRelay wires a broker behind the HTTP router. users may be nil.
func StartRelay(t *testing.T, verifier auth.Verifier, bindings *binding.Table, users handler.UserRegistrar) *Env {
	t.Helper()

	b := broker.New(verifier, bindings, nil, broker.DefaultConfig(verifier.Mode()))
	services := &internalhttp.Services{
		Broker:    b,
		WebSocket: ws.NewHandler(b, ws.Config{}),
		Users:     users,
	}
	if issuer, ok := verifier.(auth.CodeIssuer); ok {
		services.CodeIssuer = issuer
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	internalhttp.SetupRoute(engine, services, AdminAPIKey)

	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		b.Shutdown()
		srv.Close()
	})

	return &Env{
		Broker: b,
		Router: engine,
		WSURL:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (e *Env) Dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.WSURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func readRaw(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return data
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(readRaw(t, conn), &m))
	return m
}

func doJSON(router *gin.Engine, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T, env *Env, mode string) {
	rr := doJSON(env.Router, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.Equal(t, mode, resp["mode"])
}
