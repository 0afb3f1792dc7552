package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

// Ingestor is the ingestion producer. It owns event creation: message IDs
// and timestamps are assigned here, never by clients, and optional fields
// are defaulted exactly once before the event reaches the log.
type Ingestor struct {
	publisher EventPublisher
}

func NewIngestor(publisher EventPublisher) *Ingestor {
	return &Ingestor{publisher: publisher}
}

func (i *Ingestor) Submit(ctx context.Context, raw domain.RawMessage) (*domain.Event, error) {
	event := buildEvent(raw)

	if err := i.publisher.PublishEvent(ctx, event); err != nil {
		return nil, err
	}

	l := log.Ctx(ctx)
	l.Debug().
		Str(log.FieldMessageID, event.ID).
		Str(log.FieldRoomID, event.RoomID).
		Msg("event published to log")

	return event, nil
}

func (i *Ingestor) Close() error {
	return i.publisher.Close()
}

// buildEvent applies the ingestion defaults and assigns identity.
func buildEvent(raw domain.RawMessage) *domain.Event {
	event := &domain.Event{
		ID:          newMessageID(),
		RoomID:      raw.RoomID,
		SenderID:    raw.SenderID,
		Content:     raw.Content,
		MessageType: raw.MessageType,
		Status:      domain.StatusPending,
		Recipients:  raw.Recipients,
		Metadata: domain.Metadata{
			RequiresDelivery: true,
			Priority:         raw.Priority,
		},
		Timestamp: time.Now().UTC(),
	}

	if event.RoomID == "" {
		event.RoomID = domain.DefaultRoomID
	}
	if event.SenderID == "" {
		event.SenderID = domain.AnonymousSenderID
	}
	if !domain.ValidMessageType(event.MessageType) {
		event.MessageType = domain.MessageTypeText
	}
	if !domain.ValidPriority(event.Metadata.Priority) {
		event.Metadata.Priority = domain.PriorityNormal
	}
	if event.Recipients == nil {
		event.Recipients = []string{}
	}

	return event
}

// newMessageID combines a millisecond timestamp with a random suffix. The
// time component keeps IDs roughly sortable; the suffix makes collisions
// across concurrent senders practically impossible without coordination.
func newMessageID() string {
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("msg_%d_%s", time.Now().UnixMilli(), suffix)
}
