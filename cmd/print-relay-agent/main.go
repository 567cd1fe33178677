package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/EternisAI/print-relay/internal/agent"
	"github.com/spf13/viper"
)

var AppVersion string

func main() {
	InitConfig()

	if len(os.Args) > 1 && os.Args[1] == "pair" {
		if err := runPair(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Print Relay Agent", "version", AppVersion)

	printer := agent.NewPrinter(config.Local.ServiceURL)

	client := agent.NewClient(
		config.Relay.ServerURL,
		agent.Credentials{
			Username: config.Relay.Username,
			Password: config.Relay.Password,
			ClientID: config.Relay.ClientID,
		},
		printer,
		viper.ConfigFileUsed(),
		&config.Relay.TLS,
	)
	if err := client.Start(); err != nil {
		slog.Error("Failed to start print agent", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var listener *agent.LocalListener
	if config.Local.ListenPort > 0 {
		listener = agent.NewLocalListener(config.Local.ListenPort, printer)
		go func() {
			if err := listener.Start(); err != nil {
				slog.Error("Local listener error", "error", err)
				quit <- syscall.SIGTERM
			}
		}()
	}

	sig := <-quit
	slog.Info("Received shutdown signal", "signal", sig)

	slog.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup

	if listener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Stop(ctx); err != nil {
				slog.Error("Local listener shutdown error", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := client.Stop(); err != nil {
			slog.Error("Print agent stop error", "error", err)
		}
	}()

	wg.Wait()
	slog.Info("Shutdown complete")
}
