package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/EternisAI/print-relay/internal/accounts"
	internalhttp "github.com/EternisAI/print-relay/internal/api/http"
	"github.com/EternisAI/print-relay/internal/auth"
	"github.com/EternisAI/print-relay/internal/authcode"
	"github.com/EternisAI/print-relay/internal/binding"
	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/EternisAI/print-relay/internal/db"
	"github.com/EternisAI/print-relay/internal/fallback"
	"github.com/EternisAI/print-relay/internal/transport/ws"
	"github.com/EternisAI/print-relay/internal/users"
	"github.com/jackc/pgx/v5/pgxpool"
)

// relay is everything main needs to serve and later tear down.
type relay struct {
	broker   *broker.Broker
	services *internalhttp.Services
	pool     *pgxpool.Pool
}

func (r *relay) Close() {
	r.broker.Shutdown()
	if r.pool != nil {
		r.pool.Close()
	}
}

func setupRelay(ctx context.Context, cfg Config) (*relay, error) {
	mode, err := auth.ParseMode(cfg.Broker.Mode)
	if err != nil {
		return nil, err
	}

	r := &relay{services: &internalhttp.Services{}}
	bindings := binding.NewTable()

	var verifier auth.Verifier
	switch mode {
	case auth.ModeCode:
		codes := authcode.NewStore(cfg.Auth.CodeTTL, cfg.Auth.MaxOutstandingCodes)
		cv := auth.NewCodeVerifier(codes, bindings)
		r.services.CodeIssuer = cv
		verifier = cv
	case auth.ModeAccount:
		checker, err := r.setupAccounts(ctx, cfg)
		if err != nil {
			return nil, err
		}
		verifier = auth.NewAccountVerifier(checker, cfg.Auth.AccountTimeout)
	}

	brokerCfg := broker.DefaultConfig(mode)
	if cfg.Broker.FallbackEnabled != nil {
		brokerCfg.FallbackEnabled = *cfg.Broker.FallbackEnabled
	}

	forwarder := fallback.NewForwarder(cfg.Fallback)
	r.broker = broker.New(verifier, bindings, forwarder, brokerCfg)
	r.services.Broker = r.broker
	r.services.WebSocket = ws.NewHandler(r.broker, ws.Config{
		WriteTimeout:    cfg.Broker.WriteTimeout,
		MaxMessageBytes: cfg.Broker.MaxMessageBytes,
	})

	slog.Info("Broker configured",
		"mode", mode,
		"fallback_enabled", brokerCfg.FallbackEnabled,
		"fallback_url", forwarder.URL())
	return r, nil
}

func (r *relay) setupAccounts(ctx context.Context, cfg Config) (accounts.Checker, error) {
	if err := accounts.ValidateBackend(cfg.Auth.AccountBackend); err != nil {
		return nil, err
	}

	switch cfg.Auth.AccountBackend {
	case accounts.BackendPostgres:
		if cfg.DB.Url == "" {
			return nil, fmt.Errorf("db.url is required for the %s account backend", accounts.BackendPostgres)
		}
		if err := db.Migrate(ctx, cfg.DB); err != nil {
			return nil, fmt.Errorf("failed to migrate account database: %w", err)
		}
		pool, err := db.Open(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		r.pool = pool
		svc := users.NewService(pool)
		r.services.Users = svc
		return accounts.NewPostgresChecker(svc), nil

	case accounts.BackendToken:
		checker, err := accounts.NewTokenChecker(cfg.Auth.TokenSecret)
		if err != nil {
			return nil, err
		}
		r.services.TokenSecret = cfg.Auth.TokenSecret
		return checker, nil

	default:
		slog.Warn("Account mode accepts any non-empty username and password")
		return accounts.Permissive{}, nil
	}
}
