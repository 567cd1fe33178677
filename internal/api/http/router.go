package http

import (
	"net/http"

	"github.com/EternisAI/print-relay/internal/api/http/handler"
	"github.com/EternisAI/print-relay/internal/api/http/middleware"
	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Broker    *broker.Broker
	WebSocket http.Handler
	// CodeIssuer is set in code mode.
	CodeIssuer auth.CodeIssuer
	// Users is set when accounts are stored in PostgreSQL.
	Users handler.UserRegistrar
	// TokenSecret is set when accounts are signed tokens.
	TokenSecret string
}

func SetupRoute(engine *gin.Engine, srvs *Services, adminAPIKey string) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler(string(srvs.Broker.Mode()))
	engine.GET("/health", healthHandler.Check)

	ws := gin.WrapH(srvs.WebSocket)
	engine.GET("/", ws)
	engine.GET("/ws", ws)

	adminHandler := handler.NewAdminHandler(srvs.Broker, srvs.CodeIssuer)
	admin := engine.Group("/admin", middleware.APIKeyAuth(adminAPIKey))
	admin.GET("/presence", adminHandler.Presence)
	admin.GET("/connections", adminHandler.ListConnections)
	admin.GET("/agents", adminHandler.ListAgents)
	admin.GET("/bindings", adminHandler.ListBindings)
	admin.POST("/auth-codes", adminHandler.IssueAuthCode)

	if srvs.Users != nil {
		userHandler := handler.NewUserHandler(srvs.Users)
		admin.POST("/users", userHandler.CreateUser)
	}

	if srvs.TokenSecret != "" {
		tokenHandler := handler.NewTokenHandler(srvs.TokenSecret)
		admin.POST("/tokens", tokenHandler.CreateToken)
	}
}
