package domain

import (
	"time"
)

// DefaultRoomID is used when a sender does not name a room.
const DefaultRoomID = "general"

// AnonymousSenderID is used when a sender identity cannot be derived.
const AnonymousSenderID = "anonymous"

// MessageType classifies the message payload. Non-text types reference
// external media; the content itself is never embedded.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeAudio MessageType = "audio"
)

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio:
		return true
	}
	return false
}

// Status is the delivery lifecycle state of a message.
// Happy path: pending → sent → delivered → read. failed is terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// Priority ranks messages for delivery handling.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Metadata carries delivery hints attached at ingestion.
type Metadata struct {
	RequiresDelivery bool     `bson:"requiresDelivery" json:"requiresDelivery"`
	Priority         Priority `bson:"priority" json:"priority"`
}

// ChatMessage is the persisted record of a chat message. MessageID is the
// idempotency key: the store carries a unique index on it, so replayed
// events never produce a second row.
type ChatMessage struct {
	MessageID   string      `bson:"messageId" json:"messageId"`
	RoomID      string      `bson:"roomId" json:"roomId"`
	SenderID    string      `bson:"senderId" json:"senderId"`
	Content     string      `bson:"content" json:"content"`
	MessageType MessageType `bson:"messageType" json:"messageType"`
	Status      Status      `bson:"status" json:"status"`
	Recipients  []string    `bson:"recipients" json:"recipients"`
	Metadata    Metadata    `bson:"metadata" json:"metadata"`
	CreatedAt   time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// Event is the wire shape published to the event log. It mirrors
// ChatMessage with a producer-assigned timestamp; the batch consumer
// converts it back into a ChatMessage write.
type Event struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"roomId"`
	SenderID    string      `json:"senderId"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"messageType"`
	Status      Status      `json:"status"`
	Recipients  []string    `json:"recipients"`
	Metadata    Metadata    `json:"metadata"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ToChatMessage converts a consumed event into its durable form.
// The event timestamp drives both createdAt and updatedAt.
func (e *Event) ToChatMessage() ChatMessage {
	return ChatMessage{
		MessageID:   e.ID,
		RoomID:      e.RoomID,
		SenderID:    e.SenderID,
		Content:     e.Content,
		MessageType: e.MessageType,
		Status:      e.Status,
		Recipients:  e.Recipients,
		Metadata:    e.Metadata,
		CreatedAt:   e.Timestamp,
		UpdatedAt:   e.Timestamp,
	}
}

// RawMessage is a send request as it arrives from a client, before
// defaulting. Every field except Content is optional.
type RawMessage struct {
	Content     string      `json:"message"`
	RoomID      string      `json:"roomId,omitempty"`
	SenderID    string      `json:"senderId,omitempty"`
	MessageType MessageType `json:"messageType,omitempty"`
	Recipients  []string    `json:"recipients,omitempty"`
	Priority    Priority    `json:"priority,omitempty"`
}

// RoomStats are per-room aggregate counts.
type RoomStats struct {
	TotalMessages  int64 `bson:"totalMessages" json:"totalMessages"`
	TotalDelivered int64 `bson:"totalDelivered" json:"totalDelivered"`
	TotalRead      int64 `bson:"totalRead" json:"totalRead"`
}
