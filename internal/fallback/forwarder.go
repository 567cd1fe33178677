// Package fallback forwards a print job to a fixed local endpoint when no
// agent is bound to it.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultHost         = "localhost"
	DefaultPort         = 8771
	DefaultDialTimeout  = 5 * time.Second
	DefaultReplyTimeout = 10 * time.Second

	typePrintQueued = "print_queued"
)

type Config struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout"`
}

// Forwarder opens a fresh connection per job, sends the payload and waits
// for exactly one reply.
type Forwarder struct {
	url          string
	dialer       *websocket.Dialer
	replyTimeout time.Duration
}

func NewForwarder(cfg Config) *Forwarder {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}

	return &Forwarder{
		url: "ws://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
			NetDialContext:   (&net.Dialer{Timeout: cfg.DialTimeout}).DialContext,
		},
		replyTimeout: cfg.ReplyTimeout,
	}
}

func (f *Forwarder) URL() string {
	return f.url
}

// Forward reports whether the endpoint acknowledged the job with
// print_queued. Every failure is logged and reported as false.
func (f *Forwarder) Forward(ctx context.Context, payload []byte) bool {
	if err := f.forward(ctx, payload); err != nil {
		slog.Warn("Fallback forward failed", "url", f.url, "error", err)
		return false
	}
	slog.Info("Fallback forward acknowledged", "url", f.url)
	return true
}

func (f *Forwarder) forward(ctx context.Context, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during fallback forward: %v", r)
		}
	}()

	conn, resp, err := f.dialer.DialContext(ctx, f.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(f.replyTimeout)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send job: %w", err)
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read reply: %w", err)
	}

	var reply struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("invalid reply: %w", err)
	}
	if reply.Type != typePrintQueued {
		return fmt.Errorf("unexpected reply type %q: %s", reply.Type, reply.Message)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}
