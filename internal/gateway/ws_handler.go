package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rohitgami11/MayaCode/internal/config"
	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades HTTP requests to WebSocket connections and
// dispatches inbound frames to the chat service. Every frame is handled
// under a supervisor: one misbehaving event is logged and answered with
// an error frame, never allowed to close the connection.
type WSHandler struct {
	hub     *Hub
	service ChatService
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *Hub, svc ChatService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
}

func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleFrame, func(c *Client) {
		h.service.HandleDisconnect(context.Background(), c)
	})
}

func (h *WSHandler) handleFrame(client *Client, message []byte) {
	defer func() {
		if r := recover(); r != nil {
			l := log.L()
			l.Error().Interface("panic", r).Str(log.FieldClientID, client.ID).Msg("frame handler panicked")
		}
	}()

	var base domain.BaseFrame
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendFrame(domain.NewMessageErrorFrame("Invalid frame", "frame must be a JSON object with a type field"))
		return
	}

	ctx := context.Background()
	l := log.L()

	switch base.Type {
	case domain.FrameChatSend:
		var frame domain.ChatSendFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewMessageErrorFrame("Invalid chat:send frame", err.Error()))
			return
		}
		if err := h.service.HandleChatSend(ctx, client, frame); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("chat:send failed")
		}

	case domain.FrameMessageStatus:
		var frame domain.MessageStatusFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewMessageErrorFrame("Invalid message:status frame", err.Error()))
			return
		}
		if err := h.service.HandleMessageStatus(ctx, client, frame); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("message:status failed")
		}

	case domain.FrameRoomJoin:
		var frame domain.RoomJoinFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewMessageErrorFrame("Invalid room:join frame", err.Error()))
			return
		}
		if err := h.service.HandleRoomJoin(ctx, client, frame); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("room:join failed")
		}

	case domain.FrameRoomLeave:
		var frame domain.RoomLeaveFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewMessageErrorFrame("Invalid room:leave frame", err.Error()))
			return
		}
		if err := h.service.HandleRoomLeave(ctx, client, frame); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("room:leave failed")
		}

	case domain.FrameUserOnline:
		var frame domain.UserOnlineFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewMessageErrorFrame("Invalid user:online frame", err.Error()))
			return
		}
		if err := h.service.HandleUserOnline(ctx, client, frame); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("user:online failed")
		}

	case domain.FrameNotificationSend:
		if err := h.service.HandleNotificationSend(ctx, client, json.RawMessage(message)); err != nil {
			l.Warn().Err(err).Str(log.FieldClientID, client.ID).Msg("notification:send failed")
		}

	default:
		client.SendFrame(domain.NewMessageErrorFrame("Unknown frame type", base.Type))
	}
}
