package handler

import (
	"net/http"

	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	mode string
}

func NewHealthHandler(mode string) *HealthHandler {
	return &HealthHandler{mode: mode}
}

func (h *HealthHandler) Check(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Mode: h.mode})
}
