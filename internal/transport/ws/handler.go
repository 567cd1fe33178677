// Package ws carries broker connections over WebSocket text frames.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/EternisAI/print-relay/internal/broker"
	"github.com/gorilla/websocket"
)

const (
	DefaultWriteTimeout    = 10 * time.Second
	DefaultMaxMessageBytes = 16 << 20
)

type Config struct {
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
}

type Handler struct {
	broker   *broker.Broker
	upgrader websocket.Upgrader
	config   Config
}

func NewHandler(b *broker.Broker, config Config) *Handler {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return &Handler{
		broker: b,
		upgrader: websocket.Upgrader{
			// Requesters are browser pages served from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		config: config,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	h.Serve(r.Context(), conn)
}

// Serve runs the read loop for an upgraded connection until the peer goes
// away. Frames are handed to the broker one at a time.
func (h *Handler) Serve(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(h.config.MaxMessageBytes)

	c := h.broker.Admit(&transport{conn: conn, writeTimeout: h.config.WriteTimeout})
	defer h.broker.Close(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				slog.Warn("Message exceeds size limit", "conn_id", c.ID, "limit", h.config.MaxMessageBytes)
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.Debug("Connection read error", "conn_id", c.ID, "error", err)
			}
			return
		}
		h.broker.Handle(ctx, c, data)
	}
}

type transport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *transport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *transport) Close() error {
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}

func (t *transport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
