package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/EternisAI/print-relay/internal/accounts"
	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/gin-gonic/gin"
)

const (
	defaultTokenTTL = 24 * time.Hour
	maxTokenTTL     = 30 * 24 * time.Hour
)

// TokenHandler mints account tokens for the token account backend, for
// deployments where the upstream editor cannot sign them itself.
type TokenHandler struct {
	secret []byte
}

func NewTokenHandler(secret string) *TokenHandler {
	return &TokenHandler{secret: []byte(secret)}
}

func (h *TokenHandler) CreateToken(c *gin.Context) {
	var req dto.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ttl := defaultTokenTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	if ttl > maxTokenTTL {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ttl_seconds exceeds the maximum of 30 days"})
		return
	}

	token, err := accounts.GenerateToken(h.secret, req.Username, ttl)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	slog.Info("Account token issued", "username", req.Username, "ttl", ttl)
	c.JSON(http.StatusCreated, dto.TokenResponse{
		Token:     token,
		ExpiresIn: int(ttl.Seconds()),
	})
}
