package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventToChatMessage(t *testing.T) {
	req := require.New(t)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	event := Event{
		ID:          "msg_1_abc",
		RoomID:      "r1",
		SenderID:    "u1",
		Content:     "hi",
		MessageType: MessageTypeText,
		Status:      StatusPending,
		Recipients:  []string{"u2", "u3"},
		Metadata:    Metadata{RequiresDelivery: true, Priority: PriorityHigh},
		Timestamp:   ts,
	}

	msg := event.ToChatMessage()

	req.Equal("msg_1_abc", msg.MessageID)
	req.Equal("r1", msg.RoomID)
	req.Equal("u1", msg.SenderID)
	req.Equal("hi", msg.Content)
	req.Equal(StatusPending, msg.Status)
	req.Equal([]string{"u2", "u3"}, msg.Recipients)
	req.True(msg.Metadata.RequiresDelivery)
	req.Equal(PriorityHigh, msg.Metadata.Priority)
	req.Equal(ts, msg.CreatedAt)
	req.Equal(ts, msg.UpdatedAt)
}

func TestEventJSONRoundTrip(t *testing.T) {
	req := require.New(t)

	event := Event{
		ID:         "msg_2_def",
		RoomID:     "general",
		SenderID:   "anonymous",
		Content:    "hello",
		Status:     StatusPending,
		Recipients: []string{},
		Timestamp:  time.Now().UTC().Truncate(time.Millisecond),
	}

	data, err := json.Marshal(event)
	req.NoError(err)

	var decoded Event
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal(event.ID, decoded.ID)
	req.Equal(event.Timestamp, decoded.Timestamp)
}

func TestValidStatus(t *testing.T) {
	req := require.New(t)

	for _, s := range []Status{StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed} {
		req.True(ValidStatus(s), string(s))
	}
	req.False(ValidStatus("archived"))
	req.False(ValidStatus(""))
}

func TestValidMessageType(t *testing.T) {
	req := require.New(t)

	for _, mt := range []MessageType{MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio} {
		req.True(ValidMessageType(mt), string(mt))
	}
	req.False(ValidMessageType("video"))
	req.False(ValidMessageType(""))
}

func TestValidPriority(t *testing.T) {
	req := require.New(t)

	for _, p := range []Priority{PriorityNormal, PriorityHigh, PriorityUrgent} {
		req.True(ValidPriority(p), string(p))
	}
	req.False(ValidPriority("low"))
	req.False(ValidPriority(""))
}
