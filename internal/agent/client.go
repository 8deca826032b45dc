// ABOUTME: Persistent authenticated WebSocket client for the agent gateway
// ABOUTME: Owns the connection state machine, request correlation, and the reconnect timer

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/2389/trendclaw/internal/identity"
	"github.com/2389/trendclaw/internal/metrics"
)

// Default timings used when Config leaves them zero.
const (
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultRequestTimeout   = 30 * time.Second
	DefaultReconnectDelay   = 5 * time.Second

	writeTimeout = 10 * time.Second
)

// ErrClosed is returned by Connect after Disconnect has torn the client down.
var ErrClosed = errors.New("agent gateway client closed")

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateConnected
	StateReconnectScheduled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// stopper is the part of *time.Timer the client relies on.
type stopper interface {
	Stop() bool
}

// afterFunc schedules f after d. Tests replace it to drive timers by hand.
type afterFunc func(d time.Duration, f func()) stopper

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// Config configures a Client.
type Config struct {
	URL      string
	Token    string
	Identity *identity.Identity

	Client ClientInfo
	Role   string
	Scopes []string

	HandshakeTimeout time.Duration
	RequestTimeout   time.Duration
	ReconnectDelay   time.Duration
}

// Client maintains one connection to the agent gateway and multiplexes
// requests over it. It is safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dialer *websocket.Dialer

	// reconnectAfter arms the reconnect timer.
	reconnectAfter afterFunc

	pending   *pendingSet
	connected atomic.Bool

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	reconnectTimer stopper
	lifetime       context.Context
	closed         bool

	// writeMu serializes writers; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

// New creates a Client. Nothing is dialed until Connect or Start.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Client == (ClientInfo{}) {
		cfg.Client = DefaultClientInfo()
	}
	if cfg.Role == "" {
		cfg.Role = "operator"
	}
	if cfg.Scopes == nil {
		cfg.Scopes = []string{"operator.admin"}
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "agent_gateway"),
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		reconnectAfter: realAfterFunc,
		pending:        newPendingSet(realAfterFunc),
		state:          StateDisconnected,
		lifetime:       context.Background(),
	}
}

// Start connects and keeps the connection alive until ctx is done.
// An initial failure is logged and retried on the reconnect schedule.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.lifetime = ctx
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.Disconnect()
	}()

	if err := c.Connect(ctx); err != nil {
		c.logger.Warn("initial gateway connection failed, will retry", "url", c.cfg.URL, "error", err)
	}
}

// Connect dials the gateway and completes the handshake. It returns once the
// handshake response arrives, the handshake times out, or the transport fails.
// Every failure leaves a reconnect scheduled unless the client is closed.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.Identity == nil {
		return errors.New("agent gateway client has no device identity")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.state {
	case StateConnected:
		c.mu.Unlock()
		return nil
	case StateConnecting, StateHandshaking:
		c.mu.Unlock()
		return ErrAlreadyConnecting
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.logger.Debug("dialing gateway", "url", c.cfg.URL)
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.scheduleReconnect()
		return fmt.Errorf("dialing gateway: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.state = StateHandshaking
	c.mu.Unlock()

	go c.readLoop(conn)

	if err := c.handshake(ctx, conn); err != nil {
		// Detach first so the read loop's close handler treats this socket as stale.
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		conn.Close()
		c.scheduleReconnect()
		return err
	}

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	c.state = StateConnected
	c.connected.Store(true)
	c.mu.Unlock()

	metrics.SetGatewayConnected(true)
	c.logger.Info("=== GATEWAY CONNECTED ===",
		"url", c.cfg.URL,
		"device_id", c.cfg.Identity.DeviceID,
		"role", c.cfg.Role,
	)
	return nil
}

func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) error {
	params := buildConnectParams(c.cfg.Identity, c.cfg.Client, c.cfg.Role, c.cfg.Scopes, c.cfg.Token, time.Now())

	id := uuid.NewString()
	done := c.pending.add(id, handshakeMethod, c.cfg.HandshakeTimeout)
	if err := c.write(conn, requestFrame{Type: FrameRequest, ID: id, Method: handshakeMethod, Params: params}); err != nil {
		c.pending.fail(id, err)
		return fmt.Errorf("sending handshake: %w", err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			return fmt.Errorf("handshake: %w", out.err)
		}
		return nil
	case <-ctx.Done():
		c.pending.fail(id, ctx.Err())
		return ctx.Err()
	}
}

// Request issues one call and waits for its response. It fails immediately
// with ErrNotConnected when the handshake has not completed.
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if params == nil {
		params = struct{}{}
	}

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		metrics.ObserveGatewayRequest(method, metrics.OutcomeSkipped)
		return nil, ErrNotConnected
	}
	conn := c.conn
	id := uuid.NewString()
	done := c.pending.add(id, method, c.cfg.RequestTimeout)
	c.mu.Unlock()

	if err := c.write(conn, requestFrame{Type: FrameRequest, ID: id, Method: method, Params: params}); err != nil {
		c.pending.fail(id, err)
		metrics.ObserveGatewayRequest(method, metrics.OutcomeError)
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case out := <-done:
		var timeout *TimeoutError
		switch {
		case out.err == nil:
			metrics.ObserveGatewayRequest(method, metrics.OutcomeOK)
		case errors.As(out.err, &timeout):
			metrics.ObserveGatewayRequest(method, metrics.OutcomeTimeout)
		default:
			metrics.ObserveGatewayRequest(method, metrics.OutcomeError)
		}
		return out.result, out.err
	case <-ctx.Done():
		c.pending.fail(id, ctx.Err())
		metrics.ObserveGatewayRequest(method, metrics.OutcomeError)
		return nil, ctx.Err()
	}
}

// IsConnected reports whether the handshake has completed on the current socket.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Disconnect cancels any scheduled reconnect, closes the socket, and rejects
// in-flight requests. The client cannot be reconnected afterwards. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.connected.Store(false)
	rejected := c.pending.failAll(ErrConnectionClosed)
	c.mu.Unlock()

	metrics.SetGatewayConnected(false)

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.logger.Info("gateway client disconnected", "rejected_requests", rejected)
}

func (c *Client) write(conn *websocket.Conn, frame requestFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("gateway socket closed unexpectedly", "error", err)
			} else {
				c.logger.Debug("gateway socket closed", "error", err)
			}
			break
		}
		c.handleFrame(data)
	}
	c.handleClose(conn)
}

func (c *Client) handleFrame(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Debug("ignoring malformed frame", "error", err)
		return
	}

	switch frame.Type {
	case FrameResponse:
		if !c.pending.resolve(&frame) {
			c.logger.Debug("response for unknown or expired request", "id", frame.ID)
		}
	case FrameEvent:
		c.logger.Debug("ignoring gateway event", "event", frame.Event)
	default:
		c.logger.Debug("ignoring frame", "type", frame.Type)
	}
}

// handleClose runs once per socket when its read loop ends.
func (c *Client) handleClose(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		// Replaced or torn down already.
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = nil
	wasConnected := c.connected.Swap(false)
	c.state = StateDisconnected
	rejected := c.pending.failAll(ErrConnectionClosed)
	c.mu.Unlock()

	conn.Close()
	metrics.SetGatewayConnected(false)
	if wasConnected {
		c.logger.Warn("=== GATEWAY DISCONNECTED ===", "url", c.cfg.URL, "rejected_requests", rejected)
	}
	c.scheduleReconnect()
}

// scheduleReconnect arms the single reconnect timer unless one is already armed.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.reconnectTimer != nil {
		return
	}
	c.state = StateReconnectScheduled
	c.reconnectTimer = c.reconnectAfter(c.cfg.ReconnectDelay, c.reconnect)
	metrics.IncReconnect()
	c.logger.Info("gateway reconnect scheduled", "delay", c.cfg.ReconnectDelay)
}

func (c *Client) reconnect() {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.state == StateReconnectScheduled {
		c.state = StateDisconnected
	}
	ctx := c.lifetime
	c.mu.Unlock()

	if err := c.Connect(ctx); err != nil {
		c.logger.Warn("gateway reconnect failed", "error", err)
	}
}
