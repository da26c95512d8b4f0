// Package transport owns the persistent bidirectional connection to the
// marketplace real-time gateway. It dials, reads, and reconnects with
// backoff; everything above it only observes connectivity through broker
// events. Retry policy lives here and nowhere else.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/pubsub"
)

// ErrNotConnected is returned by Send while the transport is offline.
// Senders fail fast; they do not queue.
var ErrNotConnected = errors.New("transport: not connected")

// Config holds transport configuration.
type Config struct {
	// URL is the websocket endpoint, e.g. "wss://api.pitstop.example/ws".
	URL string

	// Token is the bearer credential presented at dial time.
	Token string

	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	ReconnectInterval time.Duration

	// MaxReconnectInterval caps the exponential backoff.
	MaxReconnectInterval time.Duration
}

// DefaultConfig returns sane defaults for the given endpoint and credential.
func DefaultConfig(url, token string) Config {
	return Config{
		URL:                  url,
		Token:                token,
		HandshakeTimeout:     10 * time.Second,
		ReconnectInterval:    1 * time.Second,
		MaxReconnectInterval: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = 1 * time.Second
	}
	if c.MaxReconnectInterval == 0 {
		c.MaxReconnectInterval = 30 * time.Second
	}
	return c
}

// Transport is one live connection lifecycle. It keeps dialing until Close;
// each state change and domain push is published on the broker.
type Transport struct {
	cfg    Config
	events *pubsub.Broker[Event]

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Dial creates the transport and starts its connect loop. It returns
// immediately; the first ConnectedEvent signals readiness.
func Dial(cfg Config) *Transport {
	t := &Transport{
		cfg:    cfg.withDefaults(),
		events: pubsub.NewBroker[Event](),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

// Token returns the credential the transport was dialed with.
func (t *Transport) Token() string {
	return t.cfg.Token
}

// Events returns the broker carrying connectivity and domain events.
func (t *Transport) Events() *pubsub.Broker[Event] {
	return t.events
}

// Connected reports whether a live websocket is currently established.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Send writes a frame with the given payload. Fails fast when offline.
func (t *Transport) Send(frameType string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected || t.conn == nil {
		return ErrNotConnected
	}
	return t.conn.WriteJSON(Frame{Type: frameType, Payload: encoded})
}

// Close tears the connection down and stops the reconnect loop. It blocks
// until the run loop has exited and the event broker is closed, so no event
// attributable to this transport can arrive afterwards.
func (t *Transport) Close() error {
	t.stopOnce.Do(func() {
		close(t.stop)
		t.mu.Lock()
		if t.conn != nil {
			_ = t.conn.Close()
		}
		t.mu.Unlock()
	})
	<-t.done
	return nil
}

func (t *Transport) run() {
	defer close(t.done)
	defer t.events.Close()

	interval := t.cfg.ReconnectInterval

	for {
		select {
		case <-t.stop:
			return
		default:
		}

		conn, err := t.dial()
		if err != nil {
			log.ErrorErr(log.CatTransport, "connect failed", err, "url", t.cfg.URL)
			t.events.Publish(pubsub.ConnectErrorEvent, Event{Err: err})
			if !t.sleep(interval) {
				return
			}
			interval = nextInterval(interval, t.cfg.MaxReconnectInterval)
			continue
		}

		t.mu.Lock()
		t.conn = conn
		t.connected = true
		t.mu.Unlock()

		interval = t.cfg.ReconnectInterval
		log.Info(log.CatTransport, "connected", "url", t.cfg.URL)
		t.events.Publish(pubsub.ConnectedEvent, Event{})

		t.readLoop(conn)

		t.mu.Lock()
		t.connected = false
		t.conn = nil
		t.mu.Unlock()
		_ = conn.Close()

		t.events.Publish(pubsub.DisconnectedEvent, Event{})

		select {
		case <-t.stop:
			return
		default:
		}
		log.Warn(log.CatTransport, "connection lost, reconnecting", "in", interval)
		if !t.sleep(interval) {
			return
		}
		interval = nextInterval(interval, t.cfg.MaxReconnectInterval)
	}
}

func (t *Transport) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: t.cfg.HandshakeTimeout}

	header := http.Header{}
	if t.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+t.cfg.Token)
	}

	conn, resp, err := dialer.Dial(t.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			log.Debug(log.CatTransport, "read loop ended", "error", err)
			return
		}
		t.dispatch(frame)
	}
}

func (t *Transport) dispatch(frame Frame) {
	switch frame.Type {
	case FrameMessage:
		var msg Message
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			log.ErrorErr(log.CatTransport, "bad message payload", err)
			return
		}
		t.events.Publish(pubsub.MessageEvent, Event{Message: msg})
	case FrameRead:
		var msg Message
		if err := json.Unmarshal(frame.Payload, &msg); err != nil {
			log.ErrorErr(log.CatTransport, "bad read receipt payload", err)
			return
		}
		t.events.Publish(pubsub.ReadEvent, Event{Message: msg})
	case FrameAck, FrameError:
		// Send acknowledgements are informational; sends reconcile
		// through the REST history, not the ack.
		log.Debug(log.CatTransport, "frame", "type", frame.Type)
	default:
		log.Debug(log.CatTransport, "ignoring unknown frame", "type", frame.Type)
	}
}

// sleep waits for d unless the transport is stopped first.
func (t *Transport) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.stop:
		return false
	case <-timer.C:
		return true
	}
}

func nextInterval(current, maxInterval time.Duration) time.Duration {
	next := current * 2
	if next > maxInterval {
		return maxInterval
	}
	return next
}
