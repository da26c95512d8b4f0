package chatwindow

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pitstophq/pitstop/internal/cache"
	"github.com/pitstophq/pitstop/internal/chat"
	"github.com/pitstophq/pitstop/internal/connection"
	"github.com/pitstophq/pitstop/internal/notice"
	"github.com/pitstophq/pitstop/internal/pubsub"
	"github.com/pitstophq/pitstop/internal/transport"
	"github.com/pitstophq/pitstop/internal/ui/toaster"
)

type recordingSender struct {
	mu     sync.Mutex
	frames []string
	bodies []string
}

func (r *recordingSender) Send(frameType string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frameType)
	if p, ok := payload.(transport.SendPayload); ok {
		r.bodies = append(r.bodies, p.Body)
	}
	return nil
}

func (r *recordingSender) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

type fixture struct {
	registry *chat.Registry
	manager  *connection.Manager
	notices  *notice.Broker
	sender   *recordingSender
	window   Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := chat.NewRegistry()
	manager := connection.NewManager(func(string) connection.Conn { return nil })
	notices := notice.NewBroker()
	t.Cleanup(notices.Close)

	sender := &recordingSender{}
	counts := cache.NewInMemory[int]("unread", cache.DefaultExpiration, cache.DefaultCleanupInterval)
	projection := chat.NewProjection(counts, func(context.Context, string) (int, error) {
		return 0, nil
	}, time.Minute)
	service := chat.NewService(nil, sender, counts, notices)

	return &fixture{
		registry: registry,
		manager:  manager,
		notices:  notices,
		sender:   sender,
		window:   New(registry, manager, projection, service, notices),
	}
}

func TestMountUnmount_LeavesNoResidualListeners(t *testing.T) {
	f := newFixture(t)

	m := f.window
	for range 25 {
		m, _ = m.Mount()
		m = m.Unmount()
	}

	// Subscription cleanup runs off the cancelled contexts.
	require.Eventually(t, func() bool {
		return f.manager.Events().SubscriberCount() == 0 &&
			f.registry.Events().SubscriberCount() == 0 &&
			f.notices.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond, "remount cycles must not accumulate listeners")
}

func TestMount_Idempotent(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, cmd := m.Mount()

	require.True(t, m.Mounted())
	require.Nil(t, cmd)

	require.Eventually(t, func() bool {
		return f.manager.Events().SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUnmounted_DropsInFlightBrokerEvents(t *testing.T) {
	// The tea runtime can deliver an event that was already dispatched when
	// the window unmounted. With the listeners released, those events must
	// be dropped, not dispatched through nil listeners.
	f := newFixture(t)

	m, _ := f.window.Mount()
	m = m.Unmount()

	require.NotPanics(t, func() {
		var cmd tea.Cmd

		m, cmd = m.Update(pubsub.Event[chat.Session]{
			Type:    pubsub.UpdatedEvent,
			Payload: chat.NewVisitSession("vis-1", "Oil change"),
		})
		require.Nil(t, cmd)

		m, cmd = m.Update(pubsub.Event[transport.Event]{Type: pubsub.ConnectedEvent})
		require.Nil(t, cmd)

		m, cmd = m.Update(pubsub.Event[notice.Notice]{
			Type:    pubsub.CreatedEvent,
			Payload: notice.Notice{Level: notice.LevelInfo, Text: "reconnected"},
		})
		require.Nil(t, cmd)
	})

	require.False(t, m.session.IsOpen(), "events after unmount must not mutate the window")
	require.False(t, m.connected)
}

func TestVisible_SuppressedOnSupportRoute(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-1", "Oil change"))

	m = m.SetRoute("/dashboard")
	require.True(t, m.Visible())

	m = m.SetRoute("/support/tickets")
	require.True(t, m.Suppressed())
	require.False(t, m.Visible())
	require.Empty(t, m.View())

	m = m.SetRoute("/visits/vis-1")
	require.True(t, m.Visible())
}

func TestVisible_FalseWithNoOpenSession(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()

	require.False(t, m.Visible())
	require.Empty(t, m.View())
}

func TestSend_DisabledWhileDisconnected(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-1", "Oil change"))
	m.input.SetValue("hello?")

	require.False(t, m.CanSend())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Empty(t, f.sender.sent())
	require.Equal(t, "hello?", m.input.Value(), "a blocked send keeps the draft")
}

func TestSend_DeliversOverTransportWhenConnected(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-1", "Oil change"))
	m, _ = m.Update(pubsub.Event[transport.Event]{Type: pubsub.ConnectedEvent})
	require.True(t, m.CanSend())

	m.input.SetValue("running late, be there by 4")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Empty(t, m.input.Value(), "input clears on send")

	msg := cmd()
	require.IsType(t, sendDoneMsg{}, msg)
	require.Equal(t, []string{transport.FrameSend}, f.sender.sent())
	require.Equal(t, []string{"running late, be there by 4"}, f.sender.bodies)
}

func TestConnectivity_FollowsTransportEvents(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-1", ""))

	m, _ = m.Update(pubsub.Event[transport.Event]{Type: pubsub.ConnectedEvent})
	require.True(t, m.CanSend())
	require.Contains(t, m.View(), "connected")

	m, _ = m.Update(pubsub.Event[transport.Event]{Type: pubsub.DisconnectedEvent})
	require.False(t, m.CanSend())
	require.Contains(t, m.View(), "reconnecting")

	m, _ = m.Update(pubsub.Event[transport.Event]{Type: pubsub.ConnectedEvent})
	m, _ = m.Update(pubsub.Event[transport.Event]{Type: pubsub.ConnectErrorEvent})
	require.False(t, m.CanSend())
}

func TestMessageEvent_AppendsToOpenSessionOnly(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-1", "Oil change"))

	m, _ = m.Update(pubsub.Event[transport.Event]{
		Type:    pubsub.MessageEvent,
		Payload: transport.Event{Message: transport.Message{ID: "msg-1", VisitID: "vis-1", Sender: "Garage", Body: "Your car is ready"}},
	})
	require.Len(t, m.messages, 1)

	m, _ = m.Update(pubsub.Event[transport.Event]{
		Type:    pubsub.MessageEvent,
		Payload: transport.Event{Message: transport.Message{ID: "msg-2", VisitID: "vis-other", Sender: "Garage", Body: "wrong visit"}},
	})
	require.Len(t, m.messages, 1, "messages for other sessions stay out of the open window")
}

func TestBadge_RendersCapped(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-1", "Oil change"))

	m, _ = m.Update(badgeMsg{visitID: "vis-1", count: 12})
	require.Contains(t, m.View(), "9+")

	// A badge for some other visit must not bleed into this window.
	m, _ = m.Update(badgeMsg{visitID: "vis-9", count: 3})
	require.Contains(t, m.View(), "9+")
	require.NotContains(t, m.View(), " 3 ")
}

func TestHistory_StaleLoadDropped(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()
	m, _ = m.onSessionChange(chat.NewVisitSession("vis-2", ""))

	stale := historyMsg{
		session:  chat.NewVisitSession("vis-1", ""),
		messages: []chat.Message{{ID: "old", Body: "from the previous session"}},
	}
	m, _ = m.Update(stale)
	require.Empty(t, m.messages)
}

func TestNoticeEvent_ShowsToast(t *testing.T) {
	f := newFixture(t)

	m, _ := f.window.Mount()

	m, cmd := m.Update(pubsub.Event[notice.Notice]{
		Type:    pubsub.CreatedEvent,
		Payload: notice.Notice{Level: notice.LevelError, Text: "Message not sent."},
	})
	require.NotNil(t, cmd)
	require.True(t, m.toast.Visible())

	m, _ = m.Update(toaster.DismissMsg{})
	require.False(t, m.toast.Visible())
}
