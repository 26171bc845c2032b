package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/chat"
	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *chat.Engine
}

func NewWebSocketHandler(engine *chat.Engine) *WebSocketHandler {
	return &WebSocketHandler{engine: engine}
}

// HandleConnection serves one chat session over a websocket. Each incoming
// message is answered as an event stream: a meta frame with the screening
// outcome first, then tokens, a possible restart on provider fallback, and
// a final done frame.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string           `json:"type"`
			Message   string           `json:"message"`
			SessionID string           `json:"session_id"`
			History   []prompt.Message `json:"history"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" {
			continue
		}

		req := chat.Request{
			SessionID: msg.SessionID,
			Query:     msg.Message,
			History:   msg.History,
		}
		if err := h.streamTurn(c, req); err != nil {
			logger.Error("Failed to stream chat turn", zap.Error(err))
			h.sendError(c, "Failed to process message")
		}
	}
}

func (h *WebSocketHandler) streamTurn(c *websocket.Conn, req chat.Request) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := h.engine.HandleStream(ctx, req)
	if err != nil {
		return err
	}

	for ev := range events {
		if err := c.WriteJSON(ev); err != nil {
			// Client gone; cancel so the engine stops producing.
			cancel()
			return err
		}
	}
	return nil
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"kind":  "error",
		"error": errorMsg,
	}
	c.WriteJSON(msg)
}
