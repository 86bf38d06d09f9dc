package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrChannelClosed is returned when the channel has been closed.
	ErrChannelClosed = errors.New("push channel closed")
	// ErrNotConnected is returned when the channel is not connected.
	ErrNotConnected = errors.New("push channel not connected")
)

// Config holds push channel configuration.
type Config struct {
	// ConnectTimeout is the timeout for establishing a connection.
	ConnectTimeout time.Duration

	// PingInterval is the interval between ping messages. 0 disables pings.
	PingInterval time.Duration

	// PongTimeout is the timeout for receiving a pong response.
	PongTimeout time.Duration

	// MaxMessageSize is the maximum size of a message in bytes.
	MaxMessageSize int64

	// ReconnectDelay is the delay before attempting to reconnect.
	ReconnectDelay time.Duration

	// MaxReconnects is the maximum number of reconnection attempts. 0 disables auto-reconnect.
	MaxReconnects int
}

// DefaultConfig returns the default push channel configuration.
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout: 30 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		MaxMessageSize: 1 * 1024 * 1024, // 1 MB
		ReconnectDelay: 5 * time.Second,
		MaxReconnects:  3,
	}
}

// Channel is a long-lived WebSocket subscription channel. Handlers are
// registered per message type with On; incoming envelopes are decoded
// and dispatched on the read goroutine.
type Channel struct {
	endpoint string
	clientID string
	config   *Config
	logger   *log.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	state     State
	headers   http.Header
	closeChan chan struct{}

	handlerSeq int
	handlers   map[string]map[int]func(Message)
}

// NewChannel creates a channel for the given ws:// or wss:// endpoint.
func NewChannel(endpoint string, config *Config, logger *log.Logger) *Channel {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	c := &Channel{
		endpoint:  endpoint,
		clientID:  uuid.NewString(),
		config:    config,
		logger:    logger,
		state:     StateDisconnected,
		headers:   make(http.Header),
		closeChan: make(chan struct{}),
		handlers:  make(map[string]map[int]func(Message)),
	}
	// Lets the server attribute broadcasts and skip echoing a
	// client's own updates back to it.
	c.headers.Set("X-Client-ID", c.clientID)
	return c
}

// ClientID returns the identifier sent with the connection handshake.
func (c *Channel) ClientID() string {
	return c.clientID
}

// Endpoint returns the channel endpoint.
func (c *Channel) Endpoint() string {
	return c.endpoint
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetHeader sets a handshake header, e.g. a session cookie.
func (c *Channel) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// On subscribes a handler to one message type. The returned function
// removes the subscription deterministically; views must call it on
// teardown so handlers do not leak across navigations. Calling it more
// than once is safe.
func (c *Channel) On(msgType string, fn func(Message)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.handlerSeq
	c.handlerSeq++
	if c.handlers[msgType] == nil {
		c.handlers[msgType] = make(map[int]func(Message))
	}
	c.handlers[msgType][id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if hs, ok := c.handlers[msgType]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(c.handlers, msgType)
			}
		}
	}
}

// Connect establishes the WebSocket connection and starts the read loop.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	headers := c.headers.Clone()
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.ConnectTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.endpoint, headers)
	if err != nil {
		c.setState(StateDisconnected)
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	if resp != nil {
		resp.Body.Close()
	}

	if c.config.MaxMessageSize > 0 {
		conn.SetReadLimit(c.config.MaxMessageSize)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.setupPingPong(conn)

	go c.readLoop(conn)
	if c.config.PingInterval > 0 {
		go c.pingLoop(conn)
	}

	return nil
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Channel) setupPingPong(conn *websocket.Conn) {
	if c.config.PongTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(c.config.PongTimeout))
		})
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("push message not decodable, skipping", "err", err)
			continue
		}

		c.dispatch(msg)
	}
}

// dispatch invokes every handler registered for the message type.
// Messages with no subscribers are dropped silently.
func (c *Channel) dispatch(msg Message) {
	c.mu.RLock()
	hs := c.handlers[msg.Type]
	fns := make([]func(Message), 0, len(hs))
	for _, fn := range hs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(msg)
	}
}

func (c *Channel) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			c.mu.RLock()
			current := c.conn
			connected := c.state == StateConnected
			c.mu.RUnlock()
			if !connected || current != conn {
				return
			}
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// handleDisconnect runs after a read failure: marks the channel
// disconnected and retries the connection up to MaxReconnects times.
// Missed messages are not replayed; consumers already treat the channel
// as best-effort.
func (c *Channel) handleDisconnect(conn *websocket.Conn) {
	c.mu.Lock()
	if c.state == StateClosed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	conn.Close()

	if c.config.MaxReconnects <= 0 {
		c.logger.Warn("push channel disconnected, reconnect disabled")
		return
	}

	for attempt := 1; attempt <= c.config.MaxReconnects; attempt++ {
		select {
		case <-c.closeChan:
			return
		case <-time.After(c.config.ReconnectDelay):
		}

		c.logger.Info("push channel reconnecting", "attempt", attempt)
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		err := c.Connect(ctx)
		cancel()
		if err == nil {
			return
		}
		if errors.Is(err, ErrChannelClosed) {
			return
		}
		c.logger.Warn("push channel reconnect failed", "attempt", attempt, "err", err)
	}

	c.logger.Warn("push channel gave up reconnecting", "attempts", c.config.MaxReconnects)
}

// Close tears the channel down permanently. Idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	conn := c.conn
	c.conn = nil
	close(c.closeChan)
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		return conn.Close()
	}
	return nil
}
