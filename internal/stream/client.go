// Package stream consumes the launch platform's new-token WebSocket feed
// and exposes it as a channel of TokenEvent.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pump-agent/internal/domain"
	"pump-agent/internal/observability"
)

// Config configures WebSocket client behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the event channel capacity.
	Buffer int
}

// DefaultConfig returns default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            1000,
	}
}

// subscribeRequest is the feed's new-token subscription handshake.
type subscribeRequest struct {
	Method string `json:"method"`
}

// tokenCreatedPayload is the wire shape of one token-creation message.
type tokenCreatedPayload struct {
	TxType             string  `json:"txType"`
	Mint               string  `json:"mint"`
	Name               string  `json:"name"`
	Symbol             string  `json:"symbol"`
	TraderPublicKey    string  `json:"traderPublicKey"`
	BondingCurveKey    string  `json:"bondingCurveKey"`
	URI                string  `json:"uri"`
	MarketCap          float64 `json:"marketCap"`
	Volume             float64 `json:"volume"`
	Timestamp          int64   `json:"timestamp"`
	WalletDistribution []struct {
		Address string  `json:"address"`
		Percent float64 `json:"percent"`
	} `json:"walletDistribution"`
}

// Client subscribes to the new-token feed and delivers parsed events.
// The connection reconnects with exponential backoff and resubscribes;
// consumers see one continuous event sequence.
type Client struct {
	endpoint string
	config   Config
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	events chan domain.TokenEvent

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewClient connects to the feed, subscribes, and starts the read loop.
func NewClient(ctx context.Context, endpoint string, config *Config, logger *log.Logger) (*Client, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		events:   make(chan domain.TokenEvent, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	if err := c.subscribe(); err != nil {
		c.connMu.Lock()
		c.conn.Close()
		c.connMu.Unlock()
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// Events returns the token event channel. It is closed on Close.
func (c *Client) Events() <-chan domain.TokenEvent {
	return c.events
}

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// subscribe sends the new-token subscription request.
func (c *Client) subscribe() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(subscribeRequest{Method: "subscribeNewToken"}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the connection and the event channel.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	close(c.events)
	return nil
}

// readLoop reads messages and dispatches parsed token events.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			// Connection error - reconnect with exponential backoff
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}

	if err := c.subscribe(); err != nil {
		c.logger.Printf("resubscribe after reconnect failed: %v", err)
		return
	}

	observability.DefaultMetrics.Reconnects.Inc()
	c.logger.Println("reconnected to token feed")
}

// handleMessage parses one feed message into a TokenEvent.
// Non-creation and unparseable messages are skipped; a bad payload must
// never take down the stream.
func (c *Client) handleMessage(message []byte) {
	var payload tokenCreatedPayload
	if err := json.Unmarshal(message, &payload); err != nil {
		c.logger.Printf("skipping unparseable feed message: %v", err)
		return
	}

	// The feed multiplexes trade and creation messages after subscription
	// confirmations; only creations carry a mint and txType "create".
	if payload.Mint == "" || (payload.TxType != "" && payload.TxType != "create") {
		return
	}

	ev := domain.TokenEvent{
		Mint:         payload.Mint,
		Name:         payload.Name,
		Symbol:       payload.Symbol,
		Creator:      payload.TraderPublicKey,
		BondingCurve: payload.BondingCurveKey,
		MetadataURI:  payload.URI,
		MarketCap:    payload.MarketCap,
		Volume:       payload.Volume,
		Timestamp:    payload.Timestamp,
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	for _, w := range payload.WalletDistribution {
		ev.WalletDistribution = append(ev.WalletDistribution, domain.WalletShare{
			Address: w.Address,
			Percent: w.Percent,
		})
	}

	// Block until the consumer takes the event - never drop creations
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			c.connMu.Unlock()
		}
	}
}
