package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/EternisAI/print-relay/internal/accounts"
	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokenRouter(h *TokenHandler) *gin.Engine {
	r := gin.New()
	r.POST("/admin/tokens", h.CreateToken)
	return r
}

func TestCreateToken(t *testing.T) {
	const secret = "shared-secret"
	w := postJSON(setupTokenRouter(NewTokenHandler(secret)), "/admin/tokens",
		dto.CreateTokenRequest{Username: "alice", TTLSeconds: 600})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 600, resp.ExpiresIn)

	claims, err := accounts.ValidateToken([]byte(secret), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestCreateTokenDefaultsAndLimits(t *testing.T) {
	r := setupTokenRouter(NewTokenHandler("shared-secret"))

	w := postJSON(r, "/admin/tokens", dto.CreateTokenRequest{Username: "alice"})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int(defaultTokenTTL.Seconds()), resp.ExpiresIn)

	w = postJSON(r, "/admin/tokens", dto.CreateTokenRequest{Username: "alice", TTLSeconds: 90 * 24 * 3600})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/admin/tokens", dto.CreateTokenRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
