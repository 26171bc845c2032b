package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/assessment"
	"github.com/mindspace/backend/internal/crisis"
	"github.com/mindspace/backend/internal/metrics"
	"github.com/mindspace/backend/internal/severity"
	"github.com/mindspace/backend/internal/storage/models"
	"github.com/mindspace/backend/internal/storage/sqlite"
	"github.com/mindspace/backend/pkg/logger"
)

type AssessmentHandler struct {
	db *sqlite.Client
}

func NewAssessmentHandler(db *sqlite.Client) *AssessmentHandler {
	return &AssessmentHandler{db: db}
}

// GetQuestions serves the questionnaire for one instrument.
func (h *AssessmentHandler) GetQuestions(c *fiber.Ctx) error {
	instrument := assessment.Instrument(c.Params("instrument"))

	questions := assessment.Questions(instrument)
	if len(questions) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown instrument",
		})
	}

	return c.JSON(fiber.Map{
		"instrument": instrument,
		"questions":  questions,
		"options":    assessment.Options(),
	})
}

// SubmitAssessment scores a completed questionnaire and persists the result.
func (h *AssessmentHandler) SubmitAssessment(c *fiber.Ctx) error {
	var req struct {
		SessionID  string `json:"session_id"`
		Instrument string `json:"instrument"`
		Answers    []int  `json:"answers"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := assessment.Interpret(assessment.Instrument(req.Instrument), req.Answers)
	if err != nil {
		if errors.Is(err, assessment.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Failed to interpret assessment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to score assessment",
		})
	}

	metrics.AssessmentsScored.WithLabelValues(req.Instrument, result.Severity.String()).Inc()

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	record := &models.AssessmentRecord{
		ID:          uuid.NewString(),
		SessionID:   req.SessionID,
		Instrument:  string(result.Instrument),
		RawScore:    result.RawScore,
		MaxPossible: result.MaxPossible,
		Severity:    int(result.Severity),
		Band:        result.Band,
		CreatedAt:   time.Now(),
	}
	if err := h.db.InsertAssessment(record); err != nil {
		logger.Error("Failed to persist assessment", zap.Error(err))
	}

	if result.Severity >= severity.High {
		metrics.CrisisEvents.WithLabelValues(result.Severity.String(), "assessment").Inc()
		event := &models.CrisisEvent{
			ID:        uuid.NewString(),
			SessionID: req.SessionID,
			Source:    "assessment",
			Level:     result.Severity.String(),
			Severity:  int(result.Severity),
			CreatedAt: time.Now(),
		}
		if err := h.db.InsertCrisisEvent(event); err != nil {
			logger.Error("Failed to persist crisis event", zap.Error(err))
		}
	}

	body := fiber.Map{
		"session_id":     req.SessionID,
		"instrument":     result.Instrument,
		"raw_score":      result.RawScore,
		"max_possible":   result.MaxPossible,
		"severity":       int(result.Severity),
		"severity_label": result.Severity.String(),
		"band":           result.Band,
		"recommendation": result.Recommendation,
		"is_critical":    result.IsCritical(),
	}
	if result.Severity >= severity.High {
		body["resources"] = crisis.DefaultResources()
	}

	return c.JSON(body)
}
