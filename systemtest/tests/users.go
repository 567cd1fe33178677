package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T, env *Env) {
	t.Run("success", func(t *testing.T) {
		body := dto.CreateUserRequest{Username: "testuser", Password: "password123"}
		rr := doJSON(env.Router, http.MethodPost, "/admin/users", body, AdminAPIKey)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.UserResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "testuser", resp.Username)
		assert.NotEmpty(t, resp.ID)
	})

	t.Run("duplicate username", func(t *testing.T) {
		body := dto.CreateUserRequest{Username: "dupuser", Password: "password123"}
		rr := doJSON(env.Router, http.MethodPost, "/admin/users", body, AdminAPIKey)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = doJSON(env.Router, http.MethodPost, "/admin/users", body, AdminAPIKey)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("password too short", func(t *testing.T) {
		body := dto.CreateUserRequest{Username: "shortpw", Password: "short"}
		rr := doJSON(env.Router, http.MethodPost, "/admin/users", body, AdminAPIKey)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("401 without api key", func(t *testing.T) {
		body := dto.CreateUserRequest{Username: "nokey", Password: "password123"}
		rr := doJSON(env.Router, http.MethodPost, "/admin/users", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
