package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/assessment"
	"github.com/mindspace/backend/internal/chat"
	"github.com/mindspace/backend/internal/prompt"
	"github.com/mindspace/backend/internal/severity"
	"github.com/mindspace/backend/internal/storage/sqlite"
	"github.com/mindspace/backend/pkg/logger"
)

type ChatHandler struct {
	engine *chat.Engine
	db     *sqlite.Client
}

func NewChatHandler(engine *chat.Engine, db *sqlite.Client) *ChatHandler {
	return &ChatHandler{
		engine: engine,
		db:     db,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message   string           `json:"message"`
		SessionID string           `json:"session_id"`
		History   []prompt.Message `json:"history"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	chatReq := chat.Request{
		SessionID:  req.SessionID,
		Query:      req.Message,
		History:    req.History,
		Assessment: h.latestAssessment(req.SessionID),
	}

	response, err := h.engine.Handle(c.Context(), chatReq)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Message is required",
			})
		}
		logger.Error("Failed to process chat turn", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(response)
}

func (h *ChatHandler) GetChatHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}

	limit := c.QueryInt("limit", 50)
	turns, err := h.db.GetChatHistory(sessionID, limit)
	if err != nil {
		logger.Error("Failed to load chat history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load chat history",
		})
	}

	history := make([]fiber.Map, 0, len(turns))
	for _, t := range turns {
		history = append(history, fiber.Map{
			"message":         t.Message,
			"response":        t.Response,
			"severity":        t.Severity,
			"severity_label":  t.SeverityLabel,
			"crisis_detected": t.CrisisDetected,
			"sentiment":       t.SentimentLabel,
			"created_at":      t.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    history,
	})
}

// latestAssessment feeds the most recent questionnaire result into the
// turn's severity computation. Missing or unreadable records degrade to nil.
func (h *ChatHandler) latestAssessment(sessionID string) *assessment.Result {
	if sessionID == "" || h.db == nil {
		return nil
	}

	record, err := h.db.GetLatestAssessment(sessionID)
	if err != nil {
		logger.Warn("Failed to load latest assessment", zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	if record == nil {
		return nil
	}

	return &assessment.Result{
		Instrument:  assessment.Instrument(record.Instrument),
		RawScore:    record.RawScore,
		MaxPossible: record.MaxPossible,
		Severity:    severity.Level(record.Severity),
		Band:        record.Band,
	}
}
