package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pitstophq/pitstop/internal/api"
	"github.com/pitstophq/pitstop/internal/cache"
	"github.com/pitstophq/pitstop/internal/log"
	"github.com/pitstophq/pitstop/internal/notice"
	"github.com/pitstophq/pitstop/internal/transport"
)

// Message is one chat history entry as the REST API returns it.
type Message struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Mine   bool   `json:"mine"`
	Body   string `json:"body"`
	SentAt string `json:"sent_at"`
}

// Sender abstracts the connection manager's frame sending.
type Sender interface {
	Send(frameType string, payload any) error
}

// Service performs chat operations: history reads, sends over the
// transport, and mark-as-read through the optimistic cache path.
type Service struct {
	api     *api.Client
	sender  Sender
	counts  cache.Manager[string, int]
	notices *notice.Broker
}

// NewService creates a chat service. counts is the same store the unread
// projection reads, so a mark-read is visible to badges immediately.
func NewService(apiClient *api.Client, sender Sender, counts cache.Manager[string, int], notices *notice.Broker) *Service {
	return &Service{
		api:     apiClient,
		sender:  sender,
		counts:  counts,
		notices: notices,
	}
}

// History fetches the message history for a session. A 404 is an empty
// conversation, not a failure.
func (s *Service) History(ctx context.Context, session Session) ([]Message, error) {
	path, ok := historyPath(session)
	if !ok {
		return nil, nil
	}

	var messages []Message
	if err := s.api.Get(ctx, path, &messages); err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching chat history: %w", err)
	}

	s.api.Track(ctx, "chat_opened", struct {
		Kind string `json:"kind"`
	}{Kind: sessionKind(session)})

	return messages, nil
}

func sessionKind(session Session) string {
	switch session.Kind() {
	case KindVisit:
		return "visit"
	case KindAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Send pushes a message over the transport. The client message ID makes a
// resend after reconnect idempotent server-side. Failures surface as a
// notice only; a failed send must not take down the session.
func (s *Service) Send(session Session, body string) error {
	body = strings.TrimSpace(body)
	if body == "" || !session.IsOpen() {
		return nil
	}

	payload := transport.SendPayload{
		ClientMessageID: uuid.NewString(),
		Body:            body,
	}
	if visit, ok := session.Visit(); ok {
		payload.VisitID = visit.VisitID
	}
	if admin, ok := session.Admin(); ok {
		payload.ConversationID = admin.ConversationID
	}

	if err := s.sender.Send(transport.FrameSend, payload); err != nil {
		log.ErrorErr(log.CatChat, "send failed", err)
		notice.Error(s.notices, "Message not sent. Check your connection.")
		return err
	}
	return nil
}

// MarkRead zeroes the unread badge immediately and confirms with the
// server. On failure the pre-update count is reinstated; the user sees the
// badge come back plus a notice.
func (s *Service) MarkRead(ctx context.Context, visitID string) error {
	if visitID == "" {
		return nil
	}

	pending := cache.ApplyOptimistic(ctx, s.counts, CountKey(visitID), dedupeTTL,
		func(current int) int { return 0 },
		func(snapshot int) int { return snapshot },
	)

	if err := s.api.Post(ctx, "/v1/visits/"+visitID+"/read", nil, nil); err != nil {
		pending.Rollback(ctx)
		notice.Error(s.notices, api.UserMessage(err, "Could not mark the conversation as read."))
		return fmt.Errorf("marking visit %s read: %w", visitID, err)
	}
	return nil
}

// UnreadCountFetcher returns the CountFetcher backed by the REST API.
func UnreadCountFetcher(apiClient *api.Client) CountFetcher {
	return func(ctx context.Context, visitID string) (int, error) {
		var out struct {
			Count int `json:"count"`
		}
		if err := apiClient.Get(ctx, "/v1/visits/"+visitID+"/unread", &out); err != nil {
			return 0, err
		}
		return out.Count, nil
	}
}

func historyPath(session Session) (string, bool) {
	if visit, ok := session.Visit(); ok {
		return "/v1/visits/" + visit.VisitID + "/messages", true
	}
	if admin, ok := session.Admin(); ok {
		return "/v1/support/conversations/" + admin.ConversationID + "/messages", true
	}
	return "", false
}
