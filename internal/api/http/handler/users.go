package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/EternisAI/print-relay/internal/api/http/dto"
	"github.com/EternisAI/print-relay/internal/users"
	"github.com/gin-gonic/gin"
)

type UserRegistrar interface {
	Register(ctx context.Context, username, password string) (users.User, error)
}

type UserHandler struct {
	userService UserRegistrar
}

func NewUserHandler(userService UserRegistrar) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrUsernameExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
			return
		}
		slog.Error("Failed to create user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	slog.Info("User created", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusCreated, dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	})
}
