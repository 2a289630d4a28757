package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	qport "birdconnect/internal/infrastructure/queue/port"
	"birdconnect/internal/observability"
	chat "birdconnect/internal/pkg/chat/application/domain"
	"birdconnect/internal/pkg/chat/application/event"
	"birdconnect/internal/pkg/chat/application/usecase"
)

// MessageSentTaskType is the queue task name for fanning out a stored message.
const MessageSentTaskType = "chat:message_sent"

// DefaultUniqueTTL bounds how long an identical fan-out task is rejected.
const DefaultUniqueTTL = 10 * time.Minute

// MessageSentTaskPayload is the JSON payload transported via the queue.
// It identifies one stored message, so identical payloads are the same delivery.
// Participants are resolved by the worker at delivery time.
type MessageSentTaskPayload struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func payloadFromEvent(e event.MessageSent) MessageSentTaskPayload {
	return MessageSentTaskPayload{
		MessageID:      e.Message.ID,
		ConversationID: e.Message.ConversationID,
		SenderID:       e.Message.SenderID,
		Content:        e.Message.Content,
		CreatedAt:      e.Message.CreatedAt,
	}
}

// QueuePublisher implements event.Publisher by enqueueing a MessageSent task.
// A second publish of the same message inside UniqueTTL is dropped.
type QueuePublisher struct {
	Q         qport.Client
	Queue     string
	MaxRetry  int
	UniqueTTL time.Duration
}

var _ event.Publisher = (*QueuePublisher)(nil)

func NewQueuePublisher(client qport.Client) *QueuePublisher {
	return &QueuePublisher{Q: client, Queue: "chat", MaxRetry: 5, UniqueTTL: DefaultUniqueTTL}
}

func (p *QueuePublisher) PublishMessageSent(ctx context.Context, e event.MessageSent) error {
	b, err := json.Marshal(payloadFromEvent(e))
	if err != nil {
		return fmt.Errorf("encode message sent payload: %w", err)
	}
	opts := qport.EnqueueOption{Queue: p.Queue, MaxRetry: p.MaxRetry, UniqueTTL: p.UniqueTTL}
	_, err = p.Q.Enqueue(ctx, qport.Task{Type: MessageSentTaskType, Payload: b}, opts)
	if errors.Is(err, qport.ErrDuplicateTask) {
		observability.LoggerFromContext(ctx).Debug("message fan-out already queued", "message_id", e.Message.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", MessageSentTaskType, err)
	}
	return nil
}

// Notifier delivers encoded frames to connected clients. realtime.Router satisfies it.
type Notifier interface {
	Broadcast(conversationID string, payload []byte, excludeUserID string) int
	NotifyUser(userID string, payload []byte) bool
}

// MessageFrame is pushed to sockets joined to the conversation room.
type MessageFrame struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Message        MessagePayload `json:"message"`
}

// MessagePayload is the wire shape of a message on the socket.
type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationUpdatedFrame tells a participant to re-project its chat list.
type ConversationUpdatedFrame struct {
	Type            string    `json:"type"`
	ConversationID  string    `json:"conversation_id"`
	LastMessageText string    `json:"last_message_text"`
	LastMessageTime time.Time `json:"last_message_time"`
}

// ToMessagePayload converts a domain message to its socket representation.
func ToMessagePayload(m chat.Message) MessagePayload {
	return MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// RegisterMessageSentTask binds the fan-out handler to the provided server.
// The handler looks up the conversation's participants through the use case
// so the conversation_updated frame reaches both members.
func RegisterMessageSentTask(srv qport.Server, participants *usecase.ListParticipantsUseCase, notifier Notifier) {
	srv.Register(MessageSentTaskType, func(ctx context.Context, t qport.Task) error {
		var p MessageSentTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return fmt.Errorf("decode %s: %w", MessageSentTaskType, err)
		}
		ids, err := participants.Execute(ctx, usecase.ListParticipantsInput{ConversationID: p.ConversationID})
		if err != nil {
			return fmt.Errorf("participants of %s: %w", p.ConversationID, err)
		}
		return fanOut(ctx, notifier, p, ids)
	})
}

func fanOut(ctx context.Context, notifier Notifier, p MessageSentTaskPayload, participants []string) error {
	msgFrame, err := json.Marshal(MessageFrame{
		Type:           "message",
		ConversationID: p.ConversationID,
		Message: MessagePayload{
			ID:             p.MessageID,
			ConversationID: p.ConversationID,
			SenderID:       p.SenderID,
			Content:        p.Content,
			CreatedAt:      p.CreatedAt,
		},
	})
	if err != nil {
		return err
	}
	updFrame, err := json.Marshal(ConversationUpdatedFrame{
		Type:            "conversation_updated",
		ConversationID:  p.ConversationID,
		LastMessageText: p.Content,
		LastMessageTime: p.CreatedAt,
	})
	if err != nil {
		return err
	}

	delivered := notifier.Broadcast(p.ConversationID, msgFrame, "")
	notified := 0
	for _, userID := range participants {
		if notifier.NotifyUser(userID, updFrame) {
			notified++
		}
	}

	observability.LoggerFromContext(ctx).Debug("message fan-out",
		"conversation_id", p.ConversationID,
		"message_id", p.MessageID,
		"room_deliveries", delivered,
		"participants_notified", notified,
	)
	return nil
}
