// Package agent is the reference print agent. It keeps one authenticated
// connection to the broker and hands every job it receives to the local
// print service.
package agent

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/EternisAI/print-relay/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	internaltls "github.com/EternisAI/print-relay/internal/tls"
)

const (
	sendChannelBuffer = 100
	jobChannelBuffer  = 100
	pingInterval      = 30 * time.Second
	pongWait          = 75 * time.Second
	dialTimeout       = 10 * time.Second
	authTimeout       = 5 * time.Second
	writeTimeout      = 10 * time.Second
	initialDelay      = 1 * time.Second
	maxDelay          = 30 * time.Second
	backoffFactor     = 2
)

var ErrAuthRejected = errors.New("authentication rejected")

// JobPrinter prints one job. It is called for one job at a time.
type JobPrinter interface {
	Print(ctx context.Context, job []byte) error
}

// Credentials are what the agent authenticates with. In code mode Password
// carries the pairing code and Username is empty.
type Credentials struct {
	Username string
	Password string
	ClientID string
}

type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	ServerNameOverride string `mapstructure:"server_name_override"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

type Client struct {
	serverURL  string
	configPath string // Path to config file for persistence
	tlsConfig  *TLSConfig
	printer    JobPrinter
	creds      Credentials
	conn       *websocket.Conn

	sendCh chan []byte
	stopCh chan struct{}
	doneCh chan struct{}

	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewClient creates an agent client. A missing client id is generated once
// and persisted with the credential after the first successful bind.
func NewClient(serverURL string, creds Credentials, printer JobPrinter, configPath string, tlsConfig *TLSConfig) *Client {
	if creds.ClientID == "" {
		creds.ClientID = "client_" + uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		serverURL:         serverURL,
		configPath:        configPath,
		tlsConfig:         tlsConfig,
		printer:           printer,
		creds:             creds,
		sendCh:            make(chan []byte, sendChannelBuffer),
		stopCh:            make(chan struct{}),
		doneCh:            make(chan struct{}),
		reconnectDelay:    initialDelay,
		maxReconnectDelay: maxDelay,
		ctx:               ctx,
		cancel:            cancel,
	}
}

func (c *Client) Start() error {
	go c.connectionLoop()
	return nil
}

func (c *Client) Stop() error {
	slog.Info("Stopping print agent")
	close(c.stopCh)
	c.cancel()
	c.disconnect()
	<-c.doneCh
	slog.Info("Print agent stopped")
	return nil
}

func (c *Client) Send(msg []byte) error {
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return fmt.Errorf("send channel full")
	}
}

func (c *Client) ClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.ClientID
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

func (c *Client) connectionLoop() {
	defer close(c.doneCh)

	for {
		select {
		case <-c.stopCh:
			c.disconnect()
			return
		default:
			if err := c.connect(); err != nil {
				slog.Error("Connection failed", "error", err, "retry_in", c.reconnectDelay)
				select {
				case <-time.After(c.reconnectDelay):
					c.increaseReconnectDelay()
					continue
				case <-c.stopCh:
					return
				}
			}

			c.reconnectDelay = initialDelay

			if err := c.handleStream(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Info("Server closed connection")
				} else {
					slog.Error("Stream error", "error", err)
				}
			}

			c.disconnect()

			select {
			case <-c.stopCh:
				return
			case <-time.After(c.reconnectDelay):
				slog.Info("Reconnecting", "delay", c.reconnectDelay)
				c.increaseReconnectDelay()
			}
		}
	}
}

func (c *Client) dialer() (*websocket.Dialer, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: dialTimeout,
	}

	secure := strings.HasPrefix(c.serverURL, "wss://")
	if c.tlsConfig == nil || (!c.tlsConfig.Enabled && !secure) {
		slog.Warn("Using insecure connection (TLS disabled)")
		return dialer, nil
	}

	var tlsConfig *tls.Config
	var err error
	if c.tlsConfig.Enabled {
		tlsConfig, err = internaltls.LoadClientConfig(
			c.tlsConfig.CertFile,
			c.tlsConfig.KeyFile,
			c.tlsConfig.CAFile,
			c.tlsConfig.ServerNameOverride,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: %w", err)
		}
	} else {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if c.tlsConfig.InsecureSkipVerify {
		slog.Warn("Server certificate verification is disabled")
		tlsConfig.InsecureSkipVerify = true
	}

	dialer.TLSClientConfig = tlsConfig
	slog.Info("Using TLS connection")
	return dialer, nil
}

func (c *Client) connect() error {
	slog.Info("Connecting to broker", "url", c.serverURL)

	dialer, err := c.dialer()
	if err != nil {
		return err
	}

	conn, resp, err := dialer.DialContext(c.ctx, c.serverURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}

	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()

	if err := c.authenticate(conn, creds); err != nil {
		conn.Close()
		return err
	}

	if c.configPath != "" {
		if err := SaveCredentials(c.configPath, creds); err != nil {
			slog.Error("Failed to persist credentials to config", "error", err)
		} else {
			slog.Info("Credentials persisted to config", "config_path", c.configPath)
		}
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("Connected to broker", "url", c.serverURL, "client_id", creds.ClientID)
	return nil
}

// authenticate sends client_auth and waits for the broker's answer. The
// connection is already admitted, so presence broadcasts can arrive before
// the answer and are skipped.
func (c *Client) authenticate(conn *websocket.Conn, creds Credentials) error {
	if creds.Password == "" {
		return fmt.Errorf("%w: no credential configured", ErrAuthRejected)
	}

	msg, err := protocol.Encode(protocol.Inbound{
		Type:     protocol.TypeClientAuth,
		Username: creds.Username,
		Password: creds.Password,
		ClientID: creds.ClientID,
	})
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to send client_auth: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(authTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to receive auth response: %w", err)
		}

		reply, err := protocol.Decode(data)
		if err != nil {
			return fmt.Errorf("invalid auth response: %w", err)
		}

		switch reply.Type {
		case protocol.TypeAuthSuccess:
			slog.Info("Authenticated with broker", "client_id", creds.ClientID)
			return nil
		case protocol.TypeAuthError, protocol.TypeError:
			return fmt.Errorf("%w: %s", ErrAuthRejected, reply.Message)
		default:
			slog.Debug("Skipping message while authenticating", "type", reply.Type)
		}
	}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) increaseReconnectDelay() {
	c.reconnectDelay = c.reconnectDelay * backoffFactor
	if c.reconnectDelay > c.maxReconnectDelay {
		c.reconnectDelay = c.maxReconnectDelay
	}
}

func (c *Client) handleStream() error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("connection is nil")
	}

	done := make(chan struct{})
	errChan := make(chan error, 3)
	jobs := make(chan []byte, jobChannelBuffer)

	go c.receiveLoop(conn, jobs, done, errChan)
	go c.sendLoop(conn, done, errChan)
	go c.pingLoop(conn, done, errChan)
	go c.jobLoop(jobs, done)

	var err error
	select {
	case err = <-errChan:
	case <-c.stopCh:
	}
	close(done)
	return err
}

func (c *Client) receiveLoop(conn *websocket.Conn, jobs chan<- []byte, done chan struct{}, errChan chan error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errChan <- err
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			slog.Warn("Malformed message from broker", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypePrintRequest:
			slog.Debug("Print job received", "bytes", len(data))
			select {
			case jobs <- data:
			case <-done:
				return
			}
		case protocol.TypeClientStatus:
			slog.Debug("Presence update received")
		case protocol.TypeError:
			slog.Warn("Broker reported an error", "message", msg.Message)
		default:
			slog.Warn("Unknown message type", "type", msg.Type)
		}
	}
}

func (c *Client) sendLoop(conn *websocket.Conn, done chan struct{}, errChan chan error) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.sendCh:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Error("Error sending message", "error", err)
				errChan <- err
				return
			}
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, done chan struct{}, errChan chan error) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				slog.Error("Failed to send ping", "error", err)
				errChan <- err
				return
			}
			slog.Debug("Ping sent")
		}
	}
}

// jobLoop prints jobs strictly in arrival order and answers each one.
func (c *Client) jobLoop(jobs <-chan []byte, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case job := <-jobs:
			reply := handleJob(c.ctx, c.printer, job)
			if err := c.Send(reply); err != nil {
				slog.Error("Failed to queue job result", "error", err)
			}
		}
	}
}

// handleJob prints one job and builds the acknowledgment for it.
func handleJob(ctx context.Context, printer JobPrinter, job []byte) []byte {
	reply := protocol.NewReply(protocol.TypePrintQueued, "print job queued")
	if err := printer.Print(ctx, job); err != nil {
		slog.Error("Failed to print job", "error", err)
		reply = protocol.ErrorReply("print failed: " + err.Error())
	}

	data, err := protocol.Encode(reply)
	if err != nil {
		return []byte(`{"type":"error","message":"print failed"}`)
	}
	return data
}
