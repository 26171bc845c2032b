package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mindspace/backend/internal/cache/redis"
	"github.com/mindspace/backend/internal/ingestion"
	"github.com/mindspace/backend/internal/metrics"
	"github.com/mindspace/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
	cache     *redis.Client
}

func NewDocumentHandler(processor *ingestion.Processor, cache *redis.Client) *DocumentHandler {
	return &DocumentHandler{
		processor: processor,
		cache:     cache,
	}
}

// IngestDocument indexes a single reference document by path.
func (h *DocumentHandler) IngestDocument(c *fiber.Ctx) error {
	var req struct {
		Path string `json:"path"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Path is required",
		})
	}

	if err := h.processor.ProcessFile(c.Context(), req.Path); err != nil {
		logger.Error("Failed to process document", zap.String("path", req.Path), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process document",
		})
	}

	metrics.DocumentsProcessed.Inc()
	h.invalidateResponses(c.Context())

	return c.JSON(fiber.Map{
		"message": "Document processed successfully",
		"path":    req.Path,
	})
}

// Reindex ingests every supported document under a directory.
func (h *DocumentHandler) Reindex(c *fiber.Ctx) error {
	var req struct {
		Dir string `json:"dir"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Dir == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Dir is required",
		})
	}

	processed, err := h.processor.BuildIndex(c.Context(), req.Dir)
	if err != nil {
		logger.Error("Failed to rebuild index", zap.String("dir", req.Dir), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to rebuild index",
		})
	}

	metrics.DocumentsProcessed.Add(float64(processed))
	h.invalidateResponses(c.Context())

	return c.JSON(fiber.Map{
		"message":   "Index rebuilt",
		"documents": processed,
	})
}

func (h *DocumentHandler) invalidateResponses(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateResponses(ctx); err != nil {
		logger.Warn("Failed to invalidate response cache", zap.Error(err))
	}
}
