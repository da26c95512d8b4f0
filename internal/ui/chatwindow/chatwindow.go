// Package chatwindow is the composition root of the chat surface. It binds
// the session registry, the connection manager, the unread projection and
// the chat service into one Bubble Tea component. Routing policy lives here:
// the registry does not know the support page exists.
package chatwindow

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/pitstophq/pitstop/internal/chat"
	"github.com/pitstophq/pitstop/internal/connection"
	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/notice"
	"github.com/pitstophq/pitstop/internal/pubsub"
	"github.com/pitstophq/pitstop/internal/transport"
	"github.com/pitstophq/pitstop/internal/ui/overlay"
	"github.com/pitstophq/pitstop/internal/ui/styles"
	"github.com/pitstophq/pitstop/internal/ui/toaster"
)

// supportRoutePrefix marks the dedicated support page. That page embeds its
// own chat, so the floating window stays hidden there to avoid two views of
// the same conversation.
const supportRoutePrefix = "/support"

const (
	windowWidth  = 44
	historyLines = 12
	senderWidth  = 10
)

// historyMsg delivers a fetched message history.
type historyMsg struct {
	session  chat.Session
	messages []chat.Message
	err      error
}

// badgeMsg delivers a refreshed unread count for the open visit.
type badgeMsg struct {
	visitID string
	count   int
}

// sendDoneMsg reports the outcome of an outbound send.
type sendDoneMsg struct{ err error }

// Model is the floating chat window.
type Model struct {
	registry *chat.Registry
	conn     *connection.Manager
	unread   *chat.Projection
	service  *chat.Service
	notices  *notice.Broker

	// Mount lifecycle. Every broker subscription taken while mounted hangs
	// off mountCtx, so one cancel releases them all. Remounting therefore
	// cannot accumulate listeners on the shared connection.
	mountCtx    context.Context
	mountCancel context.CancelFunc
	sessions    *pubsub.ContinuousListener[chat.Session]
	events      *pubsub.ContinuousListener[transport.Event]
	toasts      *pubsub.ContinuousListener[notice.Notice]
	mounted     bool

	session   chat.Session
	messages  []chat.Message
	connected bool
	badge     string
	route     string

	input   textinput.Model
	history viewport.Model
	toast   toaster.Model
	width   int
	height  int
}

// New creates an unmounted chat window.
func New(registry *chat.Registry, conn *connection.Manager, unread *chat.Projection, service *chat.Service, notices *notice.Broker) Model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = 2000
	input.Width = windowWidth - 4
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextPlaceholderColor)

	history := viewport.New(windowWidth-2, historyLines)

	return Model{
		registry: registry,
		conn:     conn,
		unread:   unread,
		service:  service,
		notices:  notices,
		input:    input,
		history:  history,
		toast:    toaster.New(),
	}
}

// Mount subscribes to the shared brokers and starts listening. Idempotent:
// mounting a mounted window is a no-op.
func (m Model) Mount() (Model, tea.Cmd) {
	if m.mounted {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mountCtx = ctx
	m.mountCancel = cancel
	m.sessions = pubsub.NewContinuousListener(ctx, m.registry.Events())
	m.events = pubsub.NewContinuousListener(ctx, m.conn.Events())
	m.toasts = pubsub.NewContinuousListener(ctx, m.notices)
	m.mounted = true

	m.session = m.registry.Open()
	m.connected = m.conn.Connected()
	m.input.Focus()

	log.Debug(log.CatUI, "chat window mounted")

	cmds := []tea.Cmd{
		m.sessions.Listen(),
		m.events.Listen(),
		m.toasts.Listen(),
	}
	if m.session.IsOpen() {
		cmds = append(cmds, m.loadHistory(m.session), m.refreshBadge(m.session))
	}
	return m, tea.Batch(cmds...)
}

// Unmount cancels every subscription taken at mount. Safe to call twice.
func (m Model) Unmount() Model {
	if !m.mounted {
		return m
	}

	m.mountCancel()
	m.mountCtx = nil
	m.mountCancel = nil
	m.sessions = nil
	m.events = nil
	m.toasts = nil
	m.mounted = false

	log.Debug(log.CatUI, "chat window unmounted")
	return m
}

// Mounted reports whether the window currently holds broker subscriptions.
func (m Model) Mounted() bool {
	return m.mounted
}

// SetRoute feeds the current navigation path in. The window does not watch
// navigation itself; the app root pushes route changes down.
func (m Model) SetRoute(route string) Model {
	m.route = route
	return m
}

// Suppressed reports whether routing policy hides the window regardless of
// registry state.
func (m Model) Suppressed() bool {
	return strings.HasPrefix(m.route, supportRoutePrefix)
}

// Visible reports whether the window should render at all.
func (m Model) Visible() bool {
	return m.mounted && m.session.IsOpen() && !m.Suppressed()
}

// CanSend reports whether the send control is live. Transport loss degrades
// to a disabled input, never an error screen.
func (m Model) CanSend() bool {
	return m.connected && m.session.IsOpen()
}

// Init implements tea.Model. The window mounts via Mount, not Init, because
// the app root controls when the window participates in the event flow.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pubsub.Event[chat.Session]:
		// Broker events can still be in flight in the tea runtime after an
		// unmount released the listeners. Drop them instead of re-arming.
		if !m.mounted {
			return m, nil
		}
		return m.onSessionChange(msg.Payload)

	case pubsub.Event[transport.Event]:
		if !m.mounted {
			return m, nil
		}
		return m.onTransportEvent(msg)

	case pubsub.Event[notice.Notice]:
		if !m.mounted {
			return m, nil
		}
		m.toast = m.toast.Show(msg.Payload)
		return m, tea.Batch(m.toasts.Listen(), toaster.ScheduleDismiss(toaster.DefaultDuration))

	case toaster.DismissMsg:
		m.toast = m.toast.Hide()
		return m, nil

	case historyMsg:
		return m.onHistory(msg)

	case badgeMsg:
		if visit, ok := m.session.Visit(); ok && visit.VisitID == msg.visitID {
			m.badge = chat.Badge(msg.count)
		}
		return m, nil

	case sendDoneMsg:
		// Failures already raised a notice inside the service.
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) onKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if !m.Visible() {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.registry.Close()
		return m, nil

	case tea.KeyEnter:
		if !m.CanSend() {
			return m, nil
		}
		body := m.input.Value()
		if strings.TrimSpace(body) == "" {
			return m, nil
		}
		m.input.Reset()
		session := m.session
		return m, func() tea.Msg {
			return sendDoneMsg{err: m.service.Send(session, body)}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) onSessionChange(session chat.Session) (Model, tea.Cmd) {
	m.session = session
	m.messages = nil
	m.badge = ""

	cmds := []tea.Cmd{m.sessions.Listen()}
	if session.IsOpen() {
		cmds = append(cmds, m.loadHistory(session), m.refreshBadge(session))
		if visit, ok := session.Visit(); ok {
			cmds = append(cmds, m.markRead(visit.VisitID))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) onTransportEvent(event pubsub.Event[transport.Event]) (Model, tea.Cmd) {
	cmds := []tea.Cmd{m.events.Listen()}

	switch event.Type {
	case pubsub.ConnectedEvent:
		m.connected = true
	case pubsub.DisconnectedEvent, pubsub.ConnectErrorEvent:
		m.connected = false
	case pubsub.MessageEvent:
		msg := event.Payload.Message
		if m.inOpenSession(msg) {
			m.messages = append(m.messages, chat.Message{
				ID:     msg.ID,
				Sender: msg.Sender,
				Body:   msg.Body,
				SentAt: msg.SentAt,
			})
			m.history.SetContent(m.renderMessages())
			m.history.GotoBottom()
			// Reading it live; tell the server immediately.
			if visit, ok := m.session.Visit(); ok && m.Visible() {
				cmds = append(cmds, m.markRead(visit.VisitID))
			}
		} else if msg.VisitID != "" {
			cmds = append(cmds, m.refreshBadgeFor(msg.VisitID))
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) onHistory(msg historyMsg) (Model, tea.Cmd) {
	// A stale load for a session no longer open is dropped.
	if msg.session != m.session {
		return m, nil
	}
	if msg.err != nil {
		log.ErrorErr(log.CatUI, "history load failed", msg.err)
		notice.Error(m.notices, "Could not load the conversation.")
		return m, nil
	}
	m.messages = msg.messages
	m.history.SetContent(m.renderMessages())
	m.history.GotoBottom()
	return m, nil
}

func (m Model) inOpenSession(msg transport.Message) bool {
	if visit, ok := m.session.Visit(); ok {
		return msg.VisitID == visit.VisitID
	}
	if admin, ok := m.session.Admin(); ok {
		return msg.ConversationID == admin.ConversationID
	}
	return false
}

func (m Model) loadHistory(session chat.Session) tea.Cmd {
	ctx := m.mountCtx
	return func() tea.Msg {
		messages, err := m.service.History(ctx, session)
		return historyMsg{session: session, messages: messages, err: err}
	}
}

func (m Model) refreshBadge(session chat.Session) tea.Cmd {
	visit, ok := session.Visit()
	if !ok {
		return nil
	}
	return m.refreshBadgeFor(visit.VisitID)
}

func (m Model) refreshBadgeFor(visitID string) tea.Cmd {
	ctx := m.mountCtx
	return func() tea.Msg {
		return badgeMsg{visitID: visitID, count: m.unread.Count(ctx, visitID)}
	}
}

func (m Model) markRead(visitID string) tea.Cmd {
	ctx := m.mountCtx
	return func() tea.Msg {
		_ = m.service.MarkRead(ctx, visitID)
		return badgeMsg{visitID: visitID, count: 0}
	}
}

// View renders the floating window, or nothing when closed or suppressed.
func (m Model) View() string {
	if !m.Visible() {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.titleBar())
	b.WriteString("\n")
	b.WriteString(m.history.View())
	b.WriteString("\n")
	b.WriteString(m.inputLine())
	b.WriteString("\n")
	b.WriteString(m.statusBar())

	return styles.WindowStyle.Width(windowWidth).Render(b.String())
}

// Overlay places the window over the page behind it, bottom-right.
func (m Model) Overlay(bg string) string {
	if !m.Visible() {
		return m.toast.Overlay(bg, m.width, m.height)
	}
	placed := overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.BottomRight,
		PadX:     2,
		PadY:     1,
	}, m.View(), bg)
	return m.toast.Overlay(placed, m.width, m.height)
}

func (m Model) titleBar() string {
	title := styles.TitleStyle.Render(m.session.Title())
	if m.badge != "" {
		title += " " + styles.BadgeStyle.Render(m.badge)
	}
	return title
}

func (m Model) inputLine() string {
	if !m.CanSend() {
		return styles.StatusBarStyle.Render("Sending is unavailable while offline.")
	}
	return m.input.View()
}

func (m Model) statusBar() string {
	if m.connected {
		return styles.StatusBarStyle.Render(styles.ConnectedStyle.Render("●") + " connected")
	}
	return styles.StatusBarStyle.Render(styles.DisconnectedStyle.Render("●") + " reconnecting")
}

// renderMessages lays the history out one message per block, sender column
// clipped to a fixed width and bodies wrapped to the window.
func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return styles.StatusBarStyle.Render("No messages yet.")
	}

	bodyWidth := windowWidth - 4
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}

		sender := runewidth.Truncate(msg.Sender, senderWidth, "…")
		if msg.Mine {
			b.WriteString(styles.MineStyle.Render(sender))
		} else {
			b.WriteString(styles.SenderStyle.Render(sender))
		}
		b.WriteString("\n")
		b.WriteString(styles.BodyStyle.Render(wordwrap.String(msg.Body, bodyWidth)))
		b.WriteString("\n")
	}
	return b.String()
}
