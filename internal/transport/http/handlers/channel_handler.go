package handlers

import (
	"context"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/taskstate/tasksync/internal/core/services"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

// ChannelHandler serves the status and seen WebSocket channels.
type ChannelHandler struct {
	hub    *services.StatusHub
	logger *logger.Logger
}

func NewChannelHandler(hub *services.StatusHub, logger *logger.Logger) *ChannelHandler {
	return &ChannelHandler{hub: hub, logger: logger}
}

// socketSubscriber serializes writes; the hub may publish from any goroutine.
type socketSubscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socketSubscriber) ID() string { return s.id }

func (s *socketSubscriber) SendJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// Status reads pk_list subscriptions and streams status batches back.
func (h *ChannelHandler) Status(c *websocket.Conn) {
	sub := &socketSubscriber{id: uuid.NewString(), conn: c}
	h.hub.Register(sub)
	defer h.hub.Unregister(sub.id)

	h.logger.Infow("status_channel_open", "subscriber", sub.id, "remote", c.RemoteAddr().String())
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debugw("status_channel_closed", "subscriber", sub.id, "error", err)
			return
		}

		pkList, err := domain.DecodePKList(data)
		if err != nil {
			h.logger.Warnw("status_channel_bad_payload", "subscriber", sub.id, "error", err)
			continue
		}
		if err := h.hub.Subscribe(context.Background(), sub.id, pkList); err != nil {
			h.logger.Errorw("status_channel_subscribe_failed", "subscriber", sub.id, "error", err)
		}
	}
}

// Seen reads pk_list payloads naming the tasks the client still tracks.
func (h *ChannelHandler) Seen(c *websocket.Conn) {
	connID := uuid.NewString()
	defer h.hub.ForgetSeen(connID)

	h.logger.Infow("seen_channel_open", "connection", connID, "remote", c.RemoteAddr().String())
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debugw("seen_channel_closed", "connection", connID, "error", err)
			return
		}

		pkList, err := domain.DecodePKList(data)
		if err != nil {
			h.logger.Warnw("seen_channel_bad_payload", "connection", connID, "error", err)
			continue
		}
		if _, err := h.hub.AcknowledgeSeen(context.Background(), connID, pkList); err != nil {
			h.logger.Errorw("seen_channel_ack_failed", "connection", connID, "error", err)
		}
	}
}
