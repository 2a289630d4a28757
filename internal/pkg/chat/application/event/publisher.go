package event

import (
	"context"

	chat "birdconnect/internal/pkg/chat/application/domain"
)

// MessageSent is emitted after a message has been persisted.
type MessageSent struct {
	Message      chat.Message
	Participants []string
}

// Publisher is the new-message notification hook. Implementations must not
// block the sender for long; delivery is best effort and a failed publish
// never undoes the write.
type Publisher interface {
	PublishMessageSent(ctx context.Context, e MessageSent) error
}

// NopPublisher discards events. Clients then learn about new messages by re-fetching.
type NopPublisher struct{}

func (NopPublisher) PublishMessageSent(context.Context, MessageSent) error { return nil }

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e MessageSent) error

func (f PublisherFunc) PublishMessageSent(ctx context.Context, e MessageSent) error {
	return f(ctx, e)
}
