// Package connection owns the single real-time connection shared by the
// whole client. There is at most one live transport process-wide, keyed by
// the current credential; the manager serializes connects, tears down before
// replacing, and mirrors transport state into one boolean.
package connection

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pitstophq/pitstop/internal/api"
	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/pubsub"
	"github.com/pitstophq/pitstop/internal/transport"
)

// Conn is the slice of the transport the manager and its consumers use.
type Conn interface {
	Token() string
	Events() *pubsub.Broker[transport.Event]
	Send(frameType string, payload any) error
	Connected() bool
	Close() error
}

// Dialer creates a transport for a credential. Injected so tests can hand
// the manager fakes.
type Dialer func(credential string) Conn

// TransportDialer returns the production dialer for the given websocket
// endpoint.
func TransportDialer(socketURL string) Dialer {
	return func(credential string) Conn {
		return transport.Dial(transport.DefaultConfig(socketURL, credential))
	}
}

// Manager holds the process-wide connection slot.
//
// Consumers subscribe to Events(), which is stable across credential
// changes: the manager re-publishes events from whichever transport is
// current, and its per-transport subscription is cancelled before the next
// transport exists, so a stale connection can never deliver events
// attributable to a new session.
type Manager struct {
	dial   Dialer
	events *pubsub.Broker[transport.Event]

	mu          sync.Mutex
	conn        Conn
	credential  string
	watchCancel context.CancelFunc

	connected atomic.Bool
}

// NewManager creates a Manager using dial for new connections.
func NewManager(dial Dialer) *Manager {
	return &Manager{
		dial:   dial,
		events: pubsub.NewBroker[transport.Event](),
	}
}

// Events returns the manager-level event broker. Subscriptions here survive
// reconnects and credential changes.
func (m *Manager) Events() *pubsub.Broker[transport.Event] {
	return m.events
}

// Connected reports transport-level connectivity. It flips on connect,
// disconnect and connect_error events; nothing else drives it.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// Connect ensures a live connection for credential. Idempotent: the same
// credential returns the existing connection unchanged; a different one
// tears the old connection down first. An empty credential is a disconnect.
func (m *Manager) Connect(credential string) Conn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if credential == "" {
		m.teardownLocked()
		return nil
	}

	if m.conn != nil && m.credential == credential {
		return m.conn
	}

	m.teardownLocked()

	conn := m.dial(credential)
	m.conn = conn
	m.credential = credential

	// Subscribe before releasing the lock and seed the flag from current
	// transport state: a transport that connected during dial has already
	// published its event, and nothing was listening yet.
	ctx, cancel := context.WithCancel(context.Background())
	m.watchCancel = cancel
	events := conn.Events().Subscribe(ctx)
	m.connected.Store(conn.Connected())
	go m.watch(events)

	log.Info(log.CatConn, "connection established", "credential_set", true)
	return conn
}

// Disconnect tears down the current connection if any. Safe to call when
// none exists.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// Send forwards a frame over the current connection.
func (m *Manager) Send(frameType string, payload any) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil {
		return transport.ErrNotConnected
	}
	return conn.Send(frameType, payload)
}

// WatchAuth reacts to process-wide logout signals: disconnect the transport,
// then clear the caches, in that order, for as long as ctx lives.
func (m *Manager) WatchAuth(ctx context.Context, auth *api.AuthBroker, flush func(context.Context)) {
	signals := auth.Subscribe(ctx)
	go func() {
		for event := range signals {
			if event.Type != pubsub.LoggedOutEvent {
				continue
			}
			log.Info(log.CatConn, "logout signal", "reason", event.Payload)
			m.Disconnect()
			if flush != nil {
				flush(ctx)
			}
		}
	}()
}

// teardownLocked cancels the event subscription tied to the outgoing
// connection before closing it. The ordering matters: once Close returns no
// new transport exists yet, so no event can cross sessions.
func (m *Manager) teardownLocked() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
		log.Info(log.CatConn, "connection discarded")
	}
	m.credential = ""
	m.connected.Store(false)
}

// watch mirrors one transport's events into the manager broker and the
// connected flag. The subscription is taken inside Connect; cancelling it at
// teardown closes the channel and ends the loop.
func (m *Manager) watch(events <-chan pubsub.Event[transport.Event]) {
	for event := range events {
		switch event.Type {
		case pubsub.ConnectedEvent:
			m.connected.Store(true)
		case pubsub.DisconnectedEvent, pubsub.ConnectErrorEvent:
			m.connected.Store(false)
		}
		m.events.Publish(event.Type, event.Payload)
	}
}
