package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	internalhttp "github.com/EternisAI/print-relay/internal/api/http"
	"github.com/EternisAI/print-relay/internal/cert"
	"github.com/EternisAI/print-relay/internal/health"
	internaltls "github.com/EternisAI/print-relay/internal/tls"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Print Relay Server", "version", AppVersion)

	r, err := setupRelay(context.Background(), config)
	if err != nil {
		slog.Error("Failed to set up broker", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, r.services, config.Http.AdminAPIKey)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Http.Host, strconv.Itoa(int(config.Http.Port))),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if config.TLS.Enabled {
		tlsConfig, err := loadTLS(config.TLS)
		if err != nil {
			slog.Error("Failed to load TLS configuration", "error", err)
			os.Exit(1)
		}
		httpServer.TLSConfig = tlsConfig
	}

	var healthSrv *health.Server
	if config.Health.Port > 0 {
		healthSrv = health.NewServer(config.Health.Port)
	}

	errChan := make(chan error, 2)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr, "tls", config.TLS.Enabled)
		var err error
		if httpServer.TLSConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if healthSrv != nil {
		go func() {
			if err := healthSrv.Start(); err != nil {
				errChan <- fmt.Errorf("gRPC health server error: %w", err)
			}
		}()
		healthSrv.SetServing(true)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down servers...")
	if healthSrv != nil {
		healthSrv.SetServing(false)
	}

	var wg sync.WaitGroup
	shutdownTimeout := 10 * time.Second

	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
		// Upgraded connections are not tracked by http.Server.
		r.Close()
	}()

	if healthSrv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := healthSrv.StopWithTimeout(shutdownTimeout); err != nil {
				slog.Error("gRPC health server shutdown error", "error", err)
			}
		}()
	}

	wg.Wait()
	slog.Info("Shutdown complete")
}

func loadTLS(cfg internaltls.Config) (*tls.Config, error) {
	if cfg.AutoGenerate {
		if _, err := cert.EnsureServerCert(cert.Paths{
			CACert:     cfg.CAFile,
			ServerCert: cfg.CertFile,
			ServerKey:  cfg.KeyFile,
		}, cfg.Hosts); err != nil {
			return nil, err
		}
	}

	clientAuth, err := internaltls.ParseClientAuthType(cfg.ClientAuth)
	if err != nil {
		return nil, err
	}
	return internaltls.LoadServerConfig(cfg.CertFile, cfg.KeyFile, cfg.CAFile, clientAuth)
}
