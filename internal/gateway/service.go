package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/internal/fanout"
	"github.com/rohitgami11/MayaCode/internal/producer"
	"github.com/rohitgami11/MayaCode/internal/store"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

const unreadCatchUpLimit = 100

// ChatService handles the gateway's socket events: sends into the
// pipeline, presence, room membership and offline catch-up.
type ChatService interface {
	HandleChatSend(ctx context.Context, c *Client, frame domain.ChatSendFrame) error
	HandleMessageStatus(ctx context.Context, c *Client, frame domain.MessageStatusFrame) error
	HandleRoomJoin(ctx context.Context, c *Client, frame domain.RoomJoinFrame) error
	HandleRoomLeave(ctx context.Context, c *Client, frame domain.RoomLeaveFrame) error
	HandleUserOnline(ctx context.Context, c *Client, frame domain.UserOnlineFrame) error
	HandleNotificationSend(ctx context.Context, c *Client, payload json.RawMessage) error
	HandleDisconnect(ctx context.Context, c *Client) error

	Start(ctx context.Context) error
	Stop() error
}

type chatService struct {
	hub      *Hub
	producer producer.Producer
	store    store.MessageStore
	fanout   fanout.PubSub
}

func NewChatService(h *Hub, p producer.Producer, st store.MessageStore, fo fanout.PubSub) ChatService {
	return &chatService{
		hub:      h,
		producer: p,
		store:    st,
		fanout:   fo,
	}
}

// Start subscribes this instance to both fan-out channels so messages
// accepted on any instance reach sockets connected here.
func (s *chatService) Start(ctx context.Context) error {
	l := log.L()

	err := s.fanout.Subscribe(ctx, fanout.ChannelChatMessages, func(payload []byte) {
		// The publisher ships a complete chat:receive frame.
		s.hub.BroadcastRawAll(payload)
	})
	if err != nil {
		l.Warn().Err(err).Str(log.FieldChannel, fanout.ChannelChatMessages).Msg("chat fan-out subscription failed, real-time delivery degraded")
	}

	err = s.fanout.Subscribe(ctx, fanout.ChannelNotifications, func(payload []byte) {
		frame := domain.NotificationReceiveFrame{
			Type:    domain.FrameNotificationReceive,
			Payload: json.RawMessage(payload),
		}
		if err := s.hub.BroadcastAll(frame); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("failed to broadcast notification")
		}
	})
	if err != nil {
		l.Warn().Err(err).Str(log.FieldChannel, fanout.ChannelNotifications).Msg("notification fan-out subscription failed")
	}

	return nil
}

func (s *chatService) Stop() error {
	if err := s.producer.Close(); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to close producer")
	}
	return s.fanout.Close()
}

// HandleChatSend accepts a send into the pipeline. The acknowledgment
// reflects "accepted into the event log", not "durably stored"; the
// batch consumer owns durability.
func (s *chatService) HandleChatSend(ctx context.Context, c *Client, frame domain.ChatSendFrame) error {
	senderID := frame.SenderID
	if senderID == "" {
		senderID = c.Session.GetUserID()
	}
	if senderID == "" {
		senderID = c.ID // connection-derived fallback
	}

	raw := domain.RawMessage{
		Content:     frame.Content,
		RoomID:      frame.RoomID,
		SenderID:    senderID,
		MessageType: frame.MessageType,
		Recipients:  frame.Recipients,
		Priority:    frame.Priority,
	}

	event, err := s.producer.Submit(ctx, raw)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldClientID, c.ID).Msg("failed to submit chat message")
		c.SendFrame(domain.NewMessageErrorFrame("Failed to send message", err.Error()))
		return err
	}

	// Immediate delivery to online recipients on every instance. Losing
	// this publish is tolerable: the store plus catch-up covers it.
	receive := domain.ChatReceiveFrame{
		Type:      domain.FrameChatReceive,
		ID:        event.ID,
		Content:   event.Content,
		SenderID:  event.SenderID,
		RoomID:    event.RoomID,
		Timestamp: event.Timestamp,
		Status:    domain.StatusSent,
	}
	if err := s.fanout.Publish(ctx, fanout.ChannelChatMessages, receive); err != nil {
		if !errors.Is(err, fanout.ErrBrokerUnavailable) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldMessageID, event.ID).Msg("fan-out publish failed, falling back to local room broadcast")
		}
		s.hub.BroadcastToRoom(event.RoomID, receive, c.ID)
	}

	return c.SendFrame(&domain.MessageDeliveredFrame{
		Type:      domain.FrameMessageDelivered,
		ID:        event.ID,
		Content:   event.Content,
		Timestamp: event.Timestamp,
		Status:    domain.StatusSent,
	})
}

// HandleMessageStatus updates a message's lifecycle state directly in the
// store; read receipts do not pass through the event log.
func (s *chatService) HandleMessageStatus(ctx context.Context, c *Client, frame domain.MessageStatusFrame) error {
	if frame.MessageID == "" || !domain.ValidStatus(frame.Status) {
		return c.SendFrame(domain.NewMessageErrorFrame("Invalid status update", "messageId and a valid status are required"))
	}

	if err := s.store.UpdateStatus(ctx, frame.MessageID, frame.Status); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldMessageID, frame.MessageID).Msg("failed to update message status")
		return err
	}

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldMessageID, frame.MessageID).Str("new_status", string(frame.Status)).Msg("message status updated")
	return nil
}

func (s *chatService) HandleRoomJoin(ctx context.Context, c *Client, frame domain.RoomJoinFrame) error {
	if frame.RoomID == "" {
		return c.SendFrame(domain.NewMessageErrorFrame("Invalid room join", "roomId is required"))
	}

	// One room per connection; joining another implicitly leaves the first.
	if current := c.Session.GetCurrentRoom(); current != "" && current != frame.RoomID {
		s.leaveRoom(c, current, frame.UserID)
	}

	if frame.UserID != "" {
		c.Session.SetUserID(frame.UserID)
	}

	s.hub.JoinRoom(c, frame.RoomID)
	c.Session.JoinRoom(frame.RoomID)

	return s.hub.BroadcastToRoom(frame.RoomID, &domain.RoomPresenceFrame{
		Type:      domain.FrameUserJoined,
		UserID:    frame.UserID,
		RoomID:    frame.RoomID,
		Timestamp: time.Now().UTC(),
	}, c.ID)
}

func (s *chatService) HandleRoomLeave(ctx context.Context, c *Client, frame domain.RoomLeaveFrame) error {
	if frame.RoomID == "" {
		return nil
	}
	s.leaveRoom(c, frame.RoomID, frame.UserID)
	return nil
}

// HandleUserOnline marks presence and runs offline catch-up: every stored
// message addressed to this user and not yet delivered is pushed in
// ascending chronological order, then bulk-marked delivered.
func (s *chatService) HandleUserOnline(ctx context.Context, c *Client, frame domain.UserOnlineFrame) error {
	if frame.UserID == "" {
		return c.SendFrame(domain.NewMessageErrorFrame("Invalid presence update", "userId is required"))
	}

	c.Session.SetUserID(frame.UserID)
	c.Session.SetOnline(true)

	l := log.Ctx(ctx)

	unread, err := s.store.UnreadMessages(ctx, frame.UserID, unreadCatchUpLimit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, frame.UserID).Msg("offline catch-up query failed")
		return err
	}

	if len(unread) == 0 {
		return nil
	}

	messageIDs := make([]string, 0, len(unread))
	for _, msg := range unread {
		err := c.SendFrame(&domain.ChatReceiveFrame{
			Type:      domain.FrameChatReceive,
			ID:        msg.MessageID,
			Content:   msg.Content,
			SenderID:  msg.SenderID,
			RoomID:    msg.RoomID,
			Timestamp: msg.CreatedAt,
			Status:    domain.StatusDelivered,
		})
		if err != nil {
			// Connection gone mid-push. Only what was actually queued may
			// be marked delivered; the rest stays eligible for catch-up.
			l.Warn().Err(err).Str(log.FieldUserID, frame.UserID).Msg("catch-up push interrupted")
			break
		}
		messageIDs = append(messageIDs, msg.MessageID)
	}

	if len(messageIDs) == 0 {
		return nil
	}

	modified, err := s.store.MarkDelivered(ctx, frame.UserID, messageIDs)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, frame.UserID).Msg("failed to mark messages delivered")
		return err
	}

	l.Info().
		Str(log.FieldUserID, frame.UserID).
		Int("pushed", len(messageIDs)).
		Int64("marked_delivered", modified).
		Msg("offline catch-up complete")
	return nil
}

// HandleNotificationSend forwards an arbitrary notification payload to
// every instance. There is no persistence tier on this path.
func (s *chatService) HandleNotificationSend(ctx context.Context, c *Client, payload json.RawMessage) error {
	if err := s.fanout.Publish(ctx, fanout.ChannelNotifications, payload); err != nil {
		if !errors.Is(err, fanout.ErrBrokerUnavailable) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("notification publish failed")
		}
		// Reach at least the sockets on this instance.
		return s.hub.BroadcastAll(domain.NotificationReceiveFrame{
			Type:    domain.FrameNotificationReceive,
			Payload: payload,
		})
	}
	return nil
}

func (s *chatService) HandleDisconnect(ctx context.Context, c *Client) error {
	c.Session.SetOnline(false)

	if room := c.Session.GetCurrentRoom(); room != "" {
		s.leaveRoom(c, room, c.Session.GetUserID())
	}
	return nil
}

func (s *chatService) leaveRoom(c *Client, roomID, userID string) {
	s.hub.LeaveRoom(c, roomID)
	c.Session.LeaveRoom()

	if userID == "" {
		userID = c.Session.GetUserID()
	}

	s.hub.BroadcastToRoom(roomID, &domain.RoomPresenceFrame{
		Type:      domain.FrameUserLeft,
		UserID:    userID,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	}, c.ID)
}
