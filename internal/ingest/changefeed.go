package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Reconnection and heartbeat settings for the change feed.
const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 60 * time.Second
	BackoffFactor  = 2.0
	JitterPercent  = 0.2

	HeartbeatTimeout = 60 * time.Second
	PongTimeout      = 10 * time.Second
	WriteTimeout     = 10 * time.Second
)

// Change feed states reported through the status hook.
const (
	FeedDisabled     = "disabled"
	FeedConnected    = "connected"
	FeedDisconnected = "disconnected"
)

// ChangeFeed listens on an optional websocket that announces backend state
// changes. Messages carry no data: each one only requests a refresh.
type ChangeFeed struct {
	logger   *zap.Logger
	url      string
	onChange func(reason string)
	onStatus func(status string)

	conn      *websocket.Conn
	connMu    sync.Mutex
	backoff   time.Duration
	lastMsg   time.Time
	lastMsgMu sync.RWMutex
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewChangeFeed creates a feed that calls onChange for every message.
func NewChangeFeed(logger *zap.Logger, url string, onChange func(reason string)) *ChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChangeFeed{
		logger:   logger,
		url:      url,
		onChange: onChange,
		onStatus: func(string) {},
		backoff:  InitialBackoff,
		stopChan: make(chan struct{}),
	}
}

// SetStatusHook registers a callback for connection state changes.
// Must be called before Start.
func (f *ChangeFeed) SetStatusHook(hook func(status string)) {
	if hook != nil {
		f.onStatus = hook
	}
}

// Start connects in the background and reconnects until stopped.
func (f *ChangeFeed) Start(ctx context.Context) {
	f.wg.Add(1)
	go f.runLoop(ctx)

	f.wg.Add(1)
	go f.heartbeatMonitor(ctx)
}

// Stop closes the connection and waits for the goroutines to exit.
func (f *ChangeFeed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChan)
	})
	f.closeConnection()
	f.wg.Wait()
}

// runLoop handles connection, reading, and reconnection.
func (f *ChangeFeed) runLoop(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("change_feed_stopping", zap.String("reason", "context cancelled"))
			return
		case <-f.stopChan:
			f.logger.Info("change_feed_stopping", zap.String("reason", "stop signal"))
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			f.logger.Warn("change_feed_connect_failed", zap.Error(err), zap.Duration("backoff", f.backoff))
			f.waitBackoff(ctx)
			continue
		}

		if err := f.readLoop(ctx); err != nil {
			f.logger.Warn("change_feed_read_error", zap.Error(err))
		}

		f.closeConnection()

		select {
		case <-ctx.Done():
			return
		case <-f.stopChan:
			return
		default:
			f.waitBackoff(ctx)
		}
	}
}

// connect dials the feed.
func (f *ChangeFeed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	f.backoff = InitialBackoff
	f.updateLastMsg()

	f.logger.Info("change_feed_connected", zap.String("url", f.url))
	f.onStatus(FeedConnected)

	// Changes may have happened while we were away.
	f.onChange("change feed connected")
	return nil
}

// readLoop reads notifications until the connection breaks.
func (f *ChangeFeed) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.stopChan:
			return nil
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			return fmt.Errorf("connection is nil")
		}

		conn.SetReadDeadline(time.Now().Add(HeartbeatTimeout + PongTimeout))

		msgType, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		f.updateLastMsg()

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		f.logger.Debug("change_feed_message", zap.String("body", truncate(string(message), 64)))
		f.onChange("change feed: " + truncate(string(message), 32))
	}
}

// heartbeatMonitor pings a silent connection.
func (f *ChangeFeed) heartbeatMonitor(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopChan:
			return
		case <-ticker.C:
			f.checkHeartbeat()
		}
	}
}

// checkHeartbeat verifies we've received messages recently.
func (f *ChangeFeed) checkHeartbeat() {
	f.lastMsgMu.RLock()
	lastMsg := f.lastMsg
	f.lastMsgMu.RUnlock()

	if lastMsg.IsZero() {
		return
	}

	elapsed := time.Since(lastMsg)
	if elapsed <= HeartbeatTimeout {
		return
	}

	f.logger.Debug("change_feed_heartbeat_timeout", zap.Duration("elapsed", elapsed))

	f.connMu.Lock()
	conn := f.conn
	f.connMu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			f.logger.Warn("change_feed_ping_failed", zap.Error(err))
			f.closeConnection()
		}
	}
}

func (f *ChangeFeed) updateLastMsg() {
	f.lastMsgMu.Lock()
	f.lastMsg = time.Now()
	f.lastMsgMu.Unlock()
}

// closeConnection safely closes the websocket connection.
func (f *ChangeFeed) closeConnection() {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
		f.logger.Info("change_feed_disconnected")
		f.onStatus(FeedDisconnected)
	}
}

// waitBackoff waits for the backoff duration with jitter.
func (f *ChangeFeed) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(f.backoff) * JitterPercent * (rand.Float64()*2 - 1))
	wait := f.backoff + jitter

	select {
	case <-ctx.Done():
	case <-f.stopChan:
	case <-time.After(wait):
	}

	f.backoff = time.Duration(float64(f.backoff) * BackoffFactor)
	if f.backoff > MaxBackoff {
		f.backoff = MaxBackoff
	}
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
