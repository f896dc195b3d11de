package handlers

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
)

const adminKeyHeader = "X-Admin-Key"

// KnowledgeBase is the part of the retriever the admin routes use.
type KnowledgeBase interface {
	AddDocument(ctx context.Context, doc kb.Document) error
	GetBestAnswer(ctx context.Context, question string, threshold float32) kb.Answer
	Count() int
}

type KBHandler struct {
	kb KnowledgeBase
}

func NewKBHandler(knowledge KnowledgeBase) *KBHandler {
	return &KBHandler{kb: knowledge}
}

// AdminOnly requires the X-Admin-Key header to equal key. An empty key
// disables the guarded routes.
func AdminOnly(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin API disabled",
			})
		}
		if subtle.ConstantTimeCompare([]byte(c.Get(adminKeyHeader)), []byte(key)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid admin key",
			})
		}
		return c.Next()
	}
}

// AddDocumentRequest represents request body for adding a knowledge base document
type AddDocumentRequest struct {
	ID       string `json:"id" validate:"required,max=64" example:"faq_021"`
	Text     string `json:"text" validate:"required" example:"¿Venden cerámicos para piso?"`
	Category string `json:"category" example:"productos"`
	Answer   string `json:"answer" validate:"required" example:"Sí, tenemos cerámicos nacionales e importados."`
}

// AskRequest represents request body for querying the knowledge base
type AskRequest struct {
	Question  string   `json:"question" validate:"required" example:"¿Hacen delivery?"`
	Threshold *float32 `json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1" example:"0.65"`
}

// AddDocument godoc
// @Summary Add knowledge base document
// @Description Embeds the document text and appends it to the vector index
// @Tags KnowledgeBase
// @Accept json
// @Produce json
// @Security AdminKey
// @Param data body AddDocumentRequest true "Document"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /knowledge-base/documents [post]
func (h *KBHandler) AddDocument(c *fiber.Ctx) error {
	var req AddDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request",
		})
	}
	if err := models.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	doc := kb.Document{ID: req.ID, Text: req.Text, Category: req.Category, Answer: req.Answer}
	if err := h.kb.AddDocument(c.UserContext(), doc); err != nil {
		if errors.Is(err, kb.ErrDuplicateDocument) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		log.Error().Err(err).Str("doc_id", req.ID).Msg("❌ Failed to add knowledge base document")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "failed to add document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "document added",
		"id":        doc.ID,
		"documents": h.kb.Count(),
	})
}

// Ask godoc
// @Summary Query the knowledge base
// @Description Returns the closest knowledge base answer for a question
// @Tags KnowledgeBase
// @Accept json
// @Produce json
// @Security AdminKey
// @Param data body AskRequest true "Question"
// @Success 200 {object} kb.Answer
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /knowledge-base/ask [post]
func (h *KBHandler) Ask(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request",
		})
	}
	if err := models.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	threshold := kb.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	return c.JSON(h.kb.GetBestAnswer(c.UserContext(), req.Question, threshold))
}
