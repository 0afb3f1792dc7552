package domain

import (
	"encoding/json"
	"time"
)

// WebSocket frame types from client.
const (
	FrameChatSend         = "chat:send"
	FrameMessageStatus    = "message:status"
	FrameRoomJoin         = "room:join"
	FrameRoomLeave        = "room:leave"
	FrameUserOnline       = "user:online"
	FrameNotificationSend = "notification:send"
)

// WebSocket frame types to client.
const (
	FrameChatReceive         = "chat:receive"
	FrameMessageDelivered    = "message:delivered"
	FrameMessageError        = "message:error"
	FrameUserJoined          = "user:joined"
	FrameUserLeft            = "user:left"
	FrameNotificationReceive = "notification:receive"
)

// BaseFrame is the envelope shared by all WebSocket frames.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Server frames

type ChatSendFrame struct {
	Type        string      `json:"type"`
	Content     string      `json:"message"`
	RoomID      string      `json:"roomId,omitempty"`
	SenderID    string      `json:"senderId,omitempty"`
	MessageType MessageType `json:"messageType,omitempty"`
	Recipients  []string    `json:"recipients,omitempty"`
	Priority    Priority    `json:"priority,omitempty"`
}

type MessageStatusFrame struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	Status    Status `json:"status"`
}

type RoomJoinFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type RoomLeaveFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type UserOnlineFrame struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Server -> Client frames

type ChatReceiveFrame struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Content   string    `json:"message"`
	SenderID  string    `json:"senderId"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

type MessageDeliveredFrame struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Content   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

type MessageErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewMessageErrorFrame builds the error frame emitted to a sender when a
// send cannot be accepted into the pipeline.
func NewMessageErrorFrame(message, cause string) *MessageErrorFrame {
	return &MessageErrorFrame{
		Type:    FrameMessageError,
		Message: message,
		Error:   cause,
	}
}

type NotificationReceiveFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type RoomPresenceFrame struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	RoomID    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}
