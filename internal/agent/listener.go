package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/EternisAI/print-relay/internal/protocol"
	"github.com/gorilla/websocket"
)

// LocalListener accepts print jobs directly from a broker running on the
// same host, which uses it as its fallback endpoint. Each frame is one job
// and is answered with print_queued or error.
type LocalListener struct {
	port     int
	printer  JobPrinter
	upgrader websocket.Upgrader

	// printMu keeps jobs from different connections from interleaving at
	// the print service.
	printMu sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func NewLocalListener(port int, printer JobPrinter) *LocalListener {
	return &LocalListener{
		port:    port,
		printer: printer,
	}
}

// Listen binds 127.0.0.1 only; the endpoint is never exposed off-host.
func (l *LocalListener) Listen() error {
	lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", l.port, err)
	}

	l.mu.Lock()
	l.listener = lis
	l.server = &http.Server{
		Handler:           http.HandlerFunc(l.serveWS),
		ReadHeaderTimeout: 10 * time.Second,
	}
	l.mu.Unlock()
	return nil
}

func (l *LocalListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

func (l *LocalListener) Start() error {
	if l.Addr() == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}

	slog.Info("Starting local print listener", "address", l.Addr().String())
	if err := l.server.Serve(l.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("local listener error: %w", err)
	}
	return nil
}

func (l *LocalListener) Stop(ctx context.Context) error {
	l.mu.Lock()
	server := l.server
	l.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (l *LocalListener) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Local listener upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var reply []byte
		msg, err := protocol.Decode(data)
		switch {
		case err != nil:
			reply, _ = protocol.Encode(protocol.ErrorReply("invalid JSON message"))
		case msg.Type != protocol.TypePrintRequest:
			reply, _ = protocol.Encode(protocol.ErrorReply("unknown request type"))
		default:
			l.printMu.Lock()
			reply = handleJob(r.Context(), l.printer, data)
			l.printMu.Unlock()
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}
