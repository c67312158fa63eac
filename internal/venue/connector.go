package venue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crossbook/internal/book"
	"crossbook/internal/venue/orderbook"
)

// State is the connector's lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateDiscovering
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateDiscovering:
		return "discovering"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var ErrAlreadyStarted = errors.New("connector already started")

// Connector owns the full feed lifecycle for one venue. All mutable state is
// guarded by mu; every timer callback and goroutine continuation re-checks
// the stopped flag under mu before touching state or emitting events, so no
// event fires after Stop returns.
type Connector struct {
	driver Driver
	cfg    Config
	cb     Callbacks
	log    *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	state      State
	started    bool
	stopped    bool
	inst       *Instrument
	conn       *websocket.Conn
	ob         *orderbook.Book
	attempts   int
	lastStatus Status

	reconnectTimer *time.Timer
	rotationTimer  *time.Timer
	ctxWatch       func() bool
}

// NewConnector wires a driver to the shared lifecycle machinery.
func NewConnector(driver Driver, cfg Config, cb Callbacks, log *slog.Logger) *Connector {
	return &Connector{
		driver: driver,
		cfg:    cfg,
		cb:     cb,
		log:    log.With("venue", driver.Venue()),
		ob:     orderbook.New(),
	}
}

// Start begins instrument discovery. It does not block; the connector runs on
// its own goroutines until Stop is called or ctx is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx = ctx
	c.ctxWatch = context.AfterFunc(ctx, c.Stop)
	c.state = StateDiscovering
	c.emitStatusLocked(StatusConnecting)
	c.mu.Unlock()

	go c.discover()
	return nil
}

// Stop terminates the connector: all timers are cancelled, any open socket is
// closed, and no book or status event fires after it returns. Idempotent.
func (c *Connector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.state = StateStopped
	if c.ctxWatch != nil {
		c.ctxWatch()
		c.ctxWatch = nil
	}
	c.cancelTimersLocked()
	c.closeConnLocked()
}

// State reports the current lifecycle state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// discover runs one discovery attempt and schedules the follow-up.
func (c *Connector) discover() {
	ctx := c.ctx
	inst, err := c.driver.Discover(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	if err != nil {
		c.log.Warn("discovery failed", "error", err)
		c.scheduleReconnectTimerLocked(c.cfg.DiscoveryRetry, c.reenterDiscovery)
		return
	}
	if inst == nil {
		c.log.Warn("no active instrument", "retry", c.cfg.NoInstrumentRetry)
		c.scheduleReconnectTimerLocked(c.cfg.NoInstrumentRetry, c.reenterDiscovery)
		return
	}

	c.log.Info("instrument discovered", "instrument", inst.ID, "expiry", inst.Expiry)
	c.inst = inst
	c.ob.Clear()
	c.scheduleRotationLocked(inst)
	go c.connect(inst)
}

// connect dials and subscribes, then starts the read and heartbeat loops.
func (c *Connector) connect(inst *Instrument) {
	conn, err := c.driver.Dial(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.inst != inst {
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err == nil {
		err = c.driver.Subscribe(conn, inst)
		if err != nil {
			conn.Close()
		}
	}
	if err != nil {
		c.log.Warn("connect failed", "error", err)
		c.dropConnectionLocked()
		return
	}

	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	c.emitStatusLocked(StatusConnected)

	go c.readLoop(conn)
	if payload, interval, ok := c.driver.Keepalive(); ok {
		go c.heartbeatLoop(conn, payload, interval)
	}
}

func (c *Connector) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleSocketError(conn)
			return
		}
		c.handleFrame(conn, raw)
	}
}

func (c *Connector) handleFrame(conn *websocket.Conn, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.conn != conn {
		return
	}
	if c.driver.Handle(raw, c.inst, c.ob) {
		c.emitBookLocked()
	}
}

// handleSocketError reacts to a close or error on the live socket. Errors
// from sockets already replaced by rotation or Stop are ignored.
func (c *Connector) handleSocketError(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.conn != conn {
		return
	}
	c.log.Warn("socket closed")
	c.closeConnLocked()
	c.dropConnectionLocked()
}

// dropConnectionLocked records a connection-level failure and schedules the
// backoff reconnect.
func (c *Connector) dropConnectionLocked() {
	c.state = StateDisconnected
	c.emitStatusLocked(StatusDisconnected)
	c.attempts++
	delay := ReconnectDelay(c.attempts, c.cfg.ReconnectBase, c.cfg.ReconnectMax)
	c.log.Info("reconnect scheduled", "attempt", c.attempts, "delay", delay)
	c.scheduleReconnectTimerLocked(delay, c.reenterDiscovery)
}

// reenterDiscovery is the shared timer continuation for discovery retries and
// reconnects.
func (c *Connector) reenterDiscovery() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.state = StateDiscovering
	c.emitStatusLocked(StatusConnecting)
	c.mu.Unlock()

	c.discover()
}

func (c *Connector) heartbeatLoop(conn *websocket.Conn, payload []byte, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.stopped || c.conn != conn {
			c.mu.Unlock()
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.log.Warn("keepalive write failed", "error", err)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// scheduleRotationLocked arms the rotation timer for the instrument's expiry
// plus grace. Rotation re-enters discovery regardless of reconnect state.
func (c *Connector) scheduleRotationLocked(inst *Instrument) {
	if c.rotationTimer != nil {
		c.rotationTimer.Stop()
		c.rotationTimer = nil
	}
	if inst.Expiry.IsZero() {
		return
	}

	delay := time.Until(inst.Expiry) + c.cfg.RotationGrace
	if delay < c.cfg.RotationMin {
		delay = c.cfg.RotationMin
	}
	c.rotationTimer = time.AfterFunc(delay, func() { c.rotate(inst) })
}

func (c *Connector) rotate(inst *Instrument) {
	c.mu.Lock()
	if c.stopped || c.inst != inst {
		c.mu.Unlock()
		return
	}
	c.log.Info("rotating to next instrument", "expired", inst.ID)
	c.cancelTimersLocked()
	c.closeConnLocked()
	c.inst = nil
	c.ob.Clear()
	c.state = StateDiscovering
	c.emitStatusLocked(StatusConnecting)
	c.mu.Unlock()

	c.discover()
}

// scheduleReconnectTimerLocked arms the single pending reconnect/retry timer,
// cancelling any prior one.
func (c *Connector) scheduleReconnectTimerLocked(delay time.Duration, fn func()) {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = time.AfterFunc(delay, fn)
}

func (c *Connector) cancelTimersLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.rotationTimer != nil {
		c.rotationTimer.Stop()
		c.rotationTimer = nil
	}
}

func (c *Connector) closeConnLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Connector) emitStatusLocked(s Status) {
	if c.lastStatus == s {
		return
	}
	c.lastStatus = s
	if c.cb.OnStatus != nil {
		c.cb.OnStatus(c.driver.Venue(), s)
	}
}

func (c *Connector) emitBookLocked() {
	if c.cb.OnBook == nil {
		return
	}
	bids, _ := c.ob.Levels("bids")
	asks, _ := c.ob.Levels("asks")
	c.cb.OnBook(&book.NormalizedBook{
		Venue:     c.driver.Venue(),
		Outcome:   "yes",
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	})
}
