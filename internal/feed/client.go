package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultEndpoint is the public MEVX websocket feed.
const DefaultEndpoint = "wss://ws.mevx.io/api/v1/ws"

// ErrClosed is returned by Run when the server sends a close frame.
var ErrClosed = errors.New("feed closed by server")

// ClientConfig configures websocket client behavior.
type ClientConfig struct {
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending keep-alive ping frames. Zero disables.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages. Zero means no deadline.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Logger receives connection diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultClientConfig returns default websocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      90 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// Client is a single websocket session to the flash-pool feed.
// It does not reconnect; a closed session ends Run with an error.
type Client struct {
	endpoint string
	config   ClientConfig
	logger   *zap.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient dials the endpoint and returns a connected client.
func NewClient(ctx context.Context, endpoint string, config *ClientConfig) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		conn:     conn,
		done:     make(chan struct{}),
	}

	conn.SetPingHandler(c.handlePing)
	conn.SetPongHandler(c.handlePong)

	if cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return c, nil
}

// Subscribe sends the flash-pool subscription frame for chain.
func (c *Client) Subscribe(chain string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}
	if chain == "" {
		chain = DefaultChain
	}

	req := subscribeRequest{
		JSONRPC: jsonRPCVersion,
		ID:      uuid.NewString(),
		Method:  MethodFlashPool,
		Params:  subscribeParams{Chain: chain},
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	c.logger.Info("subscribed", zap.String("endpoint", c.endpoint), zap.String("chain", chain), zap.String("id", req.ID))
	return nil
}

// Run reads text frames and sends them to out until ctx is cancelled or the
// session ends. Returns ctx.Err() on cancellation, an error wrapping ErrClosed
// on a server close frame, or the read error otherwise.
func (c *Client) Run(ctx context.Context, out chan<- []byte) error {
	stop := context.AfterFunc(ctx, func() {
		// Unblocks ReadMessage.
		c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if c.config.ReadTimeout > 0 && ctx.Err() == nil {
			c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("%w: code=%d %s", ErrClosed, closeErr.Code, closeErr.Text)
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		if msgType != websocket.TextMessage {
			continue
		}

		select {
		case out <- message:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close closes the websocket connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	err := c.conn.Close()
	c.wg.Wait()
	return err
}

// handlePing answers server pings with a pong carrying the same payload.
func (c *Client) handlePing(appData string) error {
	c.logger.Debug("ping received")
	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	err := c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.config.WriteTimeout))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// handlePong extends the read deadline when the server answers our ping.
func (c *Client) handlePong(string) error {
	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	return nil
}

// pingLoop sends periodic ping frames to keep connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				// Connection might be dead, Run will surface the read error
				c.logger.Debug("ping failed", zap.Error(err))
			}
		}
	}
}
