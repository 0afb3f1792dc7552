package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rohitgami11/MayaCode/internal/consumer"
	"github.com/rohitgami11/MayaCode/internal/domain"
	"github.com/rohitgami11/MayaCode/internal/history"
	"github.com/rohitgami11/MayaCode/internal/store"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

const (
	defaultRoomLimit   = 50
	defaultUnreadLimit = 100
	maxLimit           = 200
)

// Response is the JSON envelope for every message API endpoint.
type Response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// ConsumerStatus reports the batch consumer state on the health endpoint.
type ConsumerStatus interface {
	Status() consumer.Status
}

// HTTPHandler serves the message collaborator surface: room history,
// catch-up outside the socket path, bulk delivery marking, status updates
// and per-room stats.
type HTTPHandler struct {
	store    store.MessageStore
	history  *history.Service
	consumer ConsumerStatus
}

func NewHTTPHandler(st store.MessageStore, hist *history.Service, cons ConsumerStatus) *HTTPHandler {
	return &HTTPHandler{
		store:    st,
		history:  hist,
		consumer: cons,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/messages")
	{
		api.GET("/room/:roomId", h.GetRoomMessages)
		api.GET("/unread/:userId", h.GetUnreadMessages)
		api.POST("/delivered", h.MarkDelivered)
		api.PUT("/:messageId/status", h.UpdateStatus)
		api.GET("/stats/:roomId", h.GetRoomStats)
	}

	r.GET("/health", h.HealthCheck)
}

func (h *HTTPHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("roomId")

	limit, ok := parseQueryInt(c, "limit", defaultRoomLimit)
	if !ok {
		return
	}
	offset, ok := parseQueryInt(c, "offset", 0)
	if !ok {
		return
	}

	messages, err := h.history.RoomHistory(c.Request.Context(), roomID, limit, offset)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room messages")
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Failed to get messages",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    messages,
		Pagination: &Pagination{
			Limit:  limit,
			Offset: offset,
			Count:  len(messages),
		},
	})
}

func (h *HTTPHandler) GetUnreadMessages(c *gin.Context) {
	userID := c.Param("userId")

	limit, ok := parseQueryInt(c, "limit", defaultUnreadLimit)
	if !ok {
		return
	}

	messages, err := h.store.UnreadMessages(c.Request.Context(), userID, limit)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to get unread messages")
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Failed to get unread messages",
			Error:   err.Error(),
		})
		return
	}

	count := len(messages)
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    messages,
		Count:   &count,
	})
}

type markDeliveredRequest struct {
	UserID     string   `json:"userId"`
	MessageIDs []string `json:"messageIds"`
}

func (h *HTTPHandler) MarkDelivered(c *gin.Context) {
	var req markDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.MessageIDs == nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "userId and messageIds array are required",
		})
		return
	}

	if _, err := h.store.MarkDelivered(c.Request.Context(), req.UserID, req.MessageIDs); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldUserID, req.UserID).Msg("failed to mark messages delivered")
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Failed to mark messages as delivered",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Marked " + strconv.Itoa(len(req.MessageIDs)) + " messages as delivered",
	})
}

type updateStatusRequest struct {
	Status domain.Status `json:"status"`
}

func (h *HTTPHandler) UpdateStatus(c *gin.Context) {
	messageID := c.Param("messageId")

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "status is required",
		})
		return
	}

	if !domain.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "invalid status value",
		})
		return
	}

	if err := h.store.UpdateStatus(c.Request.Context(), messageID, req.Status); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldMessageID, messageID).Msg("failed to update message status")
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Failed to update message status",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Message status updated successfully",
	})
}

func (h *HTTPHandler) GetRoomStats(c *gin.Context) {
	roomID := c.Param("roomId")

	stats, err := h.store.RoomStats(c.Request.Context(), roomID)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room stats")
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Failed to get message statistics",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    stats,
	})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"consumer": h.consumer.Status(),
	})
}

// parseQueryInt parses a non-negative integer query parameter, writing a
// 400 response on invalid input.
func parseQueryInt(c *gin.Context, name string, defaultVal int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return defaultVal, true
	}

	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: name + " must be a non-negative integer",
		})
		return 0, false
	}

	if name == "limit" {
		// limit=0 would read as "unbounded" further down; use the default.
		if val == 0 {
			val = defaultVal
		} else if val > maxLimit {
			val = maxLimit
		}
	}
	return val, true
}
