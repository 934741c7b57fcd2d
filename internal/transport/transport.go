// Package transport maintains the WebSocket connection to the agent backend:
// dialing, reconnecting with backoff, serialized writes, and in-order frame
// delivery to a single handler.
package transport

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skiff/internal/protocol"
)

const defaultHandshakeTimeout = 10 * time.Second

var (
	ErrMissingURL     = errors.New("transport: server url is required")
	ErrMissingHandler = errors.New("transport: frame handler is required")
)

// Handler receives one inbound frame. Frames are delivered in arrival order
// from a single goroutine; the handler must not block for long.
type Handler func(frame []byte)

// Config configures the client connection.
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	Backoff          BackoffPolicy
	Handler          Handler
	// OnConnect runs after every successful (re)connect, before frames start
	// flowing. The backend pushes a fresh snapshot on connect; this hook is
	// for driver-side bookkeeping only.
	OnConnect func()
	// OnDisconnect runs after the connection drops, before the next dial.
	OnDisconnect func()
	Logger       *zap.Logger
}

// Client is the duplex connection to the backend.
type Client struct {
	url          string
	dialer       *websocket.Dialer
	backoff      BackoffPolicy
	handler      Handler
	onConnect    func()
	onDisconnect func()
	logger       *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New constructs a client; call Run to start the connection loop.
func New(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, ErrMissingURL
	}
	if cfg.Handler == nil {
		return nil, ErrMissingHandler
	}
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:          url,
		dialer:       &websocket.Dialer{HandshakeTimeout: timeout},
		backoff:      NormalizeBackoffPolicy(cfg.Backoff),
		handler:      cfg.Handler,
		onConnect:    cfg.OnConnect,
		onDisconnect: cfg.OnDisconnect,
		logger:       logger,
	}, nil
}

// Run dials and maintains the connection until ctx is canceled. Connection
// loss is absorbed by reconnecting with exponential backoff; the backend's
// on-connect snapshot brings the local view back in sync.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Debug("dial failed",
				zap.String("url", c.url),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if err := sleepContext(ctx, ComputeBackoffDelay(c.backoff, attempt)); err != nil {
				return err
			}
			attempt++
			continue
		}
		attempt = 0
		c.setConn(conn)
		c.logger.Info("connected", zap.String("url", c.url))
		if c.onConnect != nil {
			c.onConnect()
		}

		err = c.readLoop(ctx, conn)
		c.clearConn()
		if c.onDisconnect != nil {
			c.onDisconnect()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("connection lost", zap.Error(err))
	}
}

// readLoop delivers frames until the connection breaks or ctx is canceled.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handler(frame)
	}
}

// Send transmits one wire message. It returns false when not connected or
// when the write fails; the caller decides whether to queue or drop.
func (c *Client) Send(msg protocol.Message) bool {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		c.logger.Debug("encode failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("write failed", zap.String("type", string(msg.Type)), zap.Error(err))
		return false
	}
	return true
}

// Connected reports whether a live connection exists right now.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	c.connected = true
}

func (c *Client) clearConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.connected = false
}
