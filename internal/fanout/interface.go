package fanout

import (
	"context"
	"errors"
)

// Channel names shared by every gateway instance.
const (
	ChannelChatMessages  = "CHAT_MESSAGES"
	ChannelNotifications = "NOTIFICATION_MESSAGES"
)

// ErrBrokerUnavailable is returned by Publish when no broker is
// configured or reachable. Callers fall back to same-instance delivery.
var ErrBrokerUnavailable = errors.New("fan-out broker unavailable")

// Handler receives a raw payload published on a channel.
type Handler func(payload []byte)

// PubSub broadcasts payloads to all gateway instances. Delivery on this
// path is best-effort and at-most-once; durability and catch-up live in
// the message store, never here.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}
