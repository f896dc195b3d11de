package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"
)

// KnowledgeStats reports the size of the knowledge base.
type KnowledgeStats interface {
	Count() int
}

// ChannelLister lists the channels replies can go out on.
type ChannelLister interface {
	Channels() []string
}

type HealthHandler struct {
	vectorBackend string
	kb            KnowledgeStats
	channels      ChannelLister
}

func NewHealthHandler(vectorBackend string, kb KnowledgeStats, channels ChannelLister) *HealthHandler {
	return &HealthHandler{vectorBackend: vectorBackend, kb: kb, channels: channels}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string   `json:"status" example:"ok"`
	Service       string   `json:"service" example:"retail-chatbot"`
	VectorBackend string   `json:"vector_backend" example:"hnsw"`
	Documents     int      `json:"documents" example:"12"`
	Channels      []string `json:"channels" example:"messenger"`
}

// GetHealth godoc
// @Summary Service health check
// @Description Reports the vector backend, the number of indexed knowledge documents and the active channels
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	channels := h.channels.Channels()
	sort.Strings(channels)
	return c.JSON(HealthResponse{
		Status:        "ok",
		Service:       "retail-chatbot",
		VectorBackend: h.vectorBackend,
		Documents:     h.kb.Count(),
		Channels:      channels,
	})
}
