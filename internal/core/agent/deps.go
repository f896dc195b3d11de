package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/intent"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/kb"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/llm"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
)

// Users is the slice of the user repository the engine needs.
type Users interface {
	FindOrCreate(ctx context.Context, channel, externalID string) (*models.User, error)
	UpdateContact(ctx context.Context, id uuid.UUID, data models.ContactData) (*models.User, error)
}

type Products interface {
	Search(ctx context.Context, term string, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	GetByCategory(ctx context.Context, category string, limit int) ([]models.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// Orders must create an order atomically: stock check, decrement and items
// succeed or fail together.
type Orders interface {
	Create(ctx context.Context, in models.CreateOrderInput) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Order, error)
}

type ConversationLog interface {
	SaveMessage(ctx context.Context, msg *models.Conversation) error
	RecentContext(ctx context.Context, userID uuid.UUID, limit int) ([]llm.Message, error)
}

// IntentClassifier never fails; it degrades to the keyword rules.
type IntentClassifier interface {
	Identify(ctx context.Context, message string, recent []llm.Message) intent.Result
}

type ContactExtractor interface {
	ExtractContact(ctx context.Context, message string) intent.Contact
}

// AnswerFinder degrades to a not-found Answer on any failure.
type AnswerFinder interface {
	GetBestAnswer(ctx context.Context, question string, threshold float32) kb.Answer
}
