package producer

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rohitgami11/MayaCode/internal/domain"
)

type capturingPublisher struct {
	events []*domain.Event
	err    error
}

func (p *capturingPublisher) PublishEvent(ctx context.Context, event *domain.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestSubmitAppliesDefaults(t *testing.T) {
	req := require.New(t)

	pub := &capturingPublisher{}
	ing := NewIngestor(pub)

	event, err := ing.Submit(context.Background(), domain.RawMessage{Content: "hi"})
	req.NoError(err)

	req.Equal(domain.DefaultRoomID, event.RoomID)
	req.Equal(domain.AnonymousSenderID, event.SenderID)
	req.Equal(domain.MessageTypeText, event.MessageType)
	req.Equal(domain.StatusPending, event.Status)
	req.Equal(domain.PriorityNormal, event.Metadata.Priority)
	req.True(event.Metadata.RequiresDelivery)
	req.NotNil(event.Recipients)
	req.Empty(event.Recipients)
	req.False(event.Timestamp.IsZero())

	req.Len(pub.events, 1)
	req.Equal(event, pub.events[0])
}

func TestSubmitKeepsExplicitFields(t *testing.T) {
	req := require.New(t)

	pub := &capturingPublisher{}
	ing := NewIngestor(pub)

	raw := domain.RawMessage{
		Content:     "photo",
		RoomID:      "r1",
		SenderID:    "u1",
		MessageType: domain.MessageTypeImage,
		Recipients:  []string{"u2"},
		Priority:    domain.PriorityUrgent,
	}

	event, err := ing.Submit(context.Background(), raw)
	req.NoError(err)

	req.Equal("r1", event.RoomID)
	req.Equal("u1", event.SenderID)
	req.Equal(domain.MessageTypeImage, event.MessageType)
	req.Equal([]string{"u2"}, event.Recipients)
	req.Equal(domain.PriorityUrgent, event.Metadata.Priority)
}

func TestSubmitNormalisesUnknownEnums(t *testing.T) {
	req := require.New(t)

	pub := &capturingPublisher{}
	ing := NewIngestor(pub)

	event, err := ing.Submit(context.Background(), domain.RawMessage{
		Content:     "hi",
		MessageType: "hologram",
		Priority:    "asap",
	})
	req.NoError(err)

	req.Equal(domain.MessageTypeText, event.MessageType)
	req.Equal(domain.PriorityNormal, event.Metadata.Priority)
}

func TestMessageIDFormatAndUniqueness(t *testing.T) {
	req := require.New(t)

	pattern := regexp.MustCompile(`^msg_\d+_[0-9a-f-]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := newMessageID()
		req.Regexp(pattern, id)
		_, dup := seen[id]
		req.False(dup, "duplicate message id %s", id)
		seen[id] = struct{}{}
	}
}

func TestSubmitPublishFailure(t *testing.T) {
	req := require.New(t)

	cause := errors.New("broker down")
	pub := &capturingPublisher{err: &PublishError{Topic: "chat-messages", Err: cause}}
	ing := NewIngestor(pub)

	event, err := ing.Submit(context.Background(), domain.RawMessage{Content: "hi"})
	req.Nil(event)
	req.Error(err)

	var pubErr *PublishError
	req.ErrorAs(err, &pubErr)
	req.Equal("chat-messages", pubErr.Topic)
	req.ErrorIs(err, cause)
}

func TestUnavailableProducer(t *testing.T) {
	req := require.New(t)

	u := Unavailable{Topic: "chat-messages"}
	event, err := u.Submit(context.Background(), domain.RawMessage{Content: "hi"})
	req.Nil(event)

	var pubErr *PublishError
	req.ErrorAs(err, &pubErr)
	req.NoError(u.Close())
}
