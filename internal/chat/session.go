// Package chat holds the session registry, the unread projection and the
// chat service: everything between the transport and the chat window.
package chat

import (
	"sync"

	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/pubsub"
)

// Kind discriminates the session sum type.
type Kind int

const (
	// KindNone means no chat session is open.
	KindNone Kind = iota
	// KindVisit is a chat scoped to a service visit.
	KindVisit
	// KindAdmin is a chat with marketplace support.
	KindAdmin
)

// VisitSession identifies a visit-scoped conversation.
type VisitSession struct {
	VisitID     string
	ServiceName string
}

// AdminSession identifies a support conversation.
type AdminSession struct {
	ConversationID string
	Title          string
}

// Session is the open-session slot value. The two variants are mutually
// exclusive by construction: the kind tag selects which (if any) of the
// embedded values is meaningful, so the UI can never be handed both.
type Session struct {
	kind  Kind
	visit VisitSession
	admin AdminSession
}

// None returns the empty session.
func None() Session {
	return Session{}
}

// NewVisitSession builds a visit-scoped session value.
func NewVisitSession(visitID, serviceName string) Session {
	return Session{kind: KindVisit, visit: VisitSession{VisitID: visitID, ServiceName: serviceName}}
}

// NewAdminSession builds a support session value.
func NewAdminSession(conversationID, title string) Session {
	return Session{kind: KindAdmin, admin: AdminSession{ConversationID: conversationID, Title: title}}
}

// Kind returns the discriminator.
func (s Session) Kind() Kind {
	return s.kind
}

// IsOpen reports whether the slot holds any session.
func (s Session) IsOpen() bool {
	return s.kind != KindNone
}

// Visit returns the visit variant when that is what the session holds.
func (s Session) Visit() (VisitSession, bool) {
	return s.visit, s.kind == KindVisit
}

// Admin returns the admin variant when that is what the session holds.
func (s Session) Admin() (AdminSession, bool) {
	return s.admin, s.kind == KindAdmin
}

// Title returns the display title for the open session.
func (s Session) Title() string {
	switch s.kind {
	case KindVisit:
		if s.visit.ServiceName != "" {
			return s.visit.ServiceName
		}
		return "Visit " + s.visit.VisitID
	case KindAdmin:
		if s.admin.Title != "" {
			return s.admin.Title
		}
		return "Support"
	default:
		return ""
	}
}

// Registry is the process-wide open-session slot. Opening a session
// discards whatever was open before; there is no stacking and no queue.
// Routing policy (e.g. suppressing the global window on the support page)
// does not live here.
type Registry struct {
	mu     sync.RWMutex
	open   Session
	events *pubsub.Broker[Session]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{events: pubsub.NewBroker[Session]()}
}

// Events notifies observers each time the slot changes. The payload is the
// new slot value.
func (r *Registry) Events() *pubsub.Broker[Session] {
	return r.events
}

// OpenVisit puts a visit session in the slot.
func (r *Registry) OpenVisit(visitID, serviceName string) {
	r.set(NewVisitSession(visitID, serviceName))
	log.Debug(log.CatChat, "opened visit session", "visit", visitID)
}

// OpenAdmin puts a support session in the slot.
func (r *Registry) OpenAdmin(conversationID, title string) {
	r.set(NewAdminSession(conversationID, title))
	log.Debug(log.CatChat, "opened admin session", "conversation", conversationID)
}

// Close clears the slot.
func (r *Registry) Close() {
	r.set(None())
	log.Debug(log.CatChat, "closed session")
}

// Open returns the current slot value.
func (r *Registry) Open() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.open
}

func (r *Registry) set(s Session) {
	r.mu.Lock()
	r.open = s
	r.mu.Unlock()
	r.events.Publish(pubsub.UpdatedEvent, s)
}
