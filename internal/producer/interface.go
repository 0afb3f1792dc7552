package producer

import (
	"context"

	"github.com/rohitgami11/MayaCode/internal/domain"
)

// Producer accepts a raw send request, assigns identity and defaults, and
// publishes the resulting event to the event log. The returned event is
// acknowledged by the log but not yet durably stored.
type Producer interface {
	Submit(ctx context.Context, raw domain.RawMessage) (*domain.Event, error)
	Close() error
}

// EventPublisher is the transport half of the producer: it moves a
// fully-formed event onto the chat-events topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *domain.Event) error
	Close() error
}
