package agent

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/EternisAI/print-relay/internal/fallback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startListener(t *testing.T, printer JobPrinter) fallback.Config {
	t.Helper()
	l := NewLocalListener(0, printer)
	require.NoError(t, l.Listen())
	go func() { _ = l.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = l.Stop(ctx)
	})

	addr := l.Addr().(*net.TCPAddr)
	return fallback.Config{Host: "127.0.0.1", Port: addr.Port, DialTimeout: time.Second, ReplyTimeout: 2 * time.Second}
}

func TestLocalListener_ServesFallback(t *testing.T) {
	printer := &fakePrinter{}
	cfg := startListener(t, printer)

	job := []byte(`{"type":"print_request","content":"<p>walk-in</p>","settings":{}}`)
	ok := fallback.NewForwarder(cfg).Forward(context.Background(), job)

	assert.True(t, ok)
	require.Len(t, printer.received(), 1)
	assert.Equal(t, job, printer.received()[0])
}

func TestLocalListener_PrintFailure(t *testing.T) {
	cfg := startListener(t, &fakePrinter{err: errors.New("offline")})

	ok := fallback.NewForwarder(cfg).Forward(context.Background(), []byte(`{"type":"print_request","content":"x"}`))
	assert.False(t, ok)
}

func TestLocalListener_RejectsOtherTypes(t *testing.T) {
	printer := &fakePrinter{}
	cfg := startListener(t, printer)

	ok := fallback.NewForwarder(cfg).Forward(context.Background(), []byte(`{"type":"get_auth_code"}`))
	assert.False(t, ok)
	assert.Empty(t, printer.received())
}
