package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccountRelay registers an account through the admin API, binds an
// agent with it and routes a job from a requester holding the same account.
func TestAccountRelay(t *testing.T, env *Env) {
	user := dto.CreateUserRequest{Username: "frontdesk", Password: "password123"}
	rr := doJSON(env.Router, http.MethodPost, "/admin/users", user, AdminAPIKey)
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("wrong password is rejected", func(t *testing.T) {
		agent := env.Dial(t)
		send(t, agent, map[string]string{
			"type": "client_auth", "username": "frontdesk", "password": "nope", "client_id": "client_bad",
		})
		reply := read(t, agent)
		assert.Equal(t, "auth_error", reply["type"])
	})

	agent := env.Dial(t)
	send(t, agent, map[string]string{
		"type": "client_auth", "username": "frontdesk", "password": "password123", "client_id": "client_desk",
	})
	require.Equal(t, "auth_success", read(t, agent)["type"])
	require.Equal(t, "client_status", read(t, agent)["type"])

	requester := env.Dial(t)

	t.Run("scoped status", func(t *testing.T) {
		send(t, requester, map[string]string{
			"type": "check_client_status", "username": "frontdesk", "password": "password123",
		})
		status := read(t, requester)
		assert.Equal(t, "client_status", status["type"])
		assert.Equal(t, true, status["connected"])
		assert.Equal(t, "client_desk", status["client_id"])
	})

	t.Run("job reaches the bound agent", func(t *testing.T) {
		job := map[string]any{
			"type":     "print_request",
			"username": "frontdesk",
			"password": "password123",
			"content":  "<p>order 7</p>",
			"settings": map[string]any{"copies": 2},
		}
		send(t, requester, job)

		var got map[string]any
		require.NoError(t, json.Unmarshal(readRaw(t, agent), &got))
		assert.Equal(t, "print_request", got["type"])
		assert.Equal(t, "<p>order 7</p>", got["content"])

		assert.Equal(t, "print_queued", read(t, requester)["type"])
	})

	t.Run("admin bindings", func(t *testing.T) {
		rr := doJSON(env.Router, http.MethodGet, "/admin/bindings", nil, AdminAPIKey)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.BindingsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Bindings, 1)
		assert.Equal(t, "client_desk", resp.Bindings[0].AgentID)
	})
}

// TestCodeRelay pairs an agent with a code issued by the admin API.
func TestCodeRelay(t *testing.T, env *Env) {
	rr := doJSON(env.Router, http.MethodPost, "/admin/auth-codes", nil, AdminAPIKey)
	require.Equal(t, http.StatusCreated, rr.Code)

	var code dto.AuthCodeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &code))
	require.Len(t, code.Code, 8)

	agent := env.Dial(t)
	send(t, agent, map[string]string{"type": "client_auth", "password": code.Code, "client_id": "client_kiosk"})
	require.Equal(t, "auth_success", read(t, agent)["type"])
	require.Equal(t, "client_status", read(t, agent)["type"])

	requester := env.Dial(t)
	send(t, requester, map[string]any{
		"type": "print_request", "password": code.Code, "content": "<p>receipt</p>",
	})

	var got map[string]any
	require.NoError(t, json.Unmarshal(readRaw(t, agent), &got))
	assert.Equal(t, "<p>receipt</p>", got["content"])
	assert.Equal(t, "print_queued", read(t, requester)["type"])
}
