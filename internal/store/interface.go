package store

import (
	"context"

	"github.com/rohitgami11/MayaCode/internal/domain"
)

// MessageStore is the durable record of chat messages.
type MessageStore interface {
	// InsertBatch performs an unordered bulk insert. Individual failures do
	// not abort the rest of the batch; duplicate message IDs are idempotent
	// no-ops. Returns the number of documents actually inserted.
	InsertBatch(ctx context.Context, messages []domain.ChatMessage) (int, error)

	// MessagesByRoom returns a page of room history in chronological order.
	MessagesByRoom(ctx context.Context, roomID string, limit, offset int) ([]domain.ChatMessage, error)

	// UnreadMessages returns messages addressed to userID not yet delivered,
	// oldest first. This is the offline catch-up query.
	UnreadMessages(ctx context.Context, userID string, limit int) ([]domain.ChatMessage, error)

	// UpdateStatus sets the lifecycle status of a single message.
	UpdateStatus(ctx context.Context, messageID string, status domain.Status) error

	// MarkDelivered bulk-marks the given messages delivered for userID.
	// Only messages that actually list userID as a recipient are touched.
	MarkDelivered(ctx context.Context, userID string, messageIDs []string) (int64, error)

	// RoomStats returns aggregate counts for a room.
	RoomStats(ctx context.Context, roomID string) (*domain.RoomStats, error)
}
