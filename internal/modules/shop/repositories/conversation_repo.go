package repositories

import (
	"context"
	"time"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/llm"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationRepo interface {
	SaveMessage(ctx context.Context, msg *models.Conversation) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error)
	RecentContext(ctx context.Context, userID uuid.UUID, limit int) ([]llm.Message, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
	IntentStats(ctx context.Context, since time.Time) ([]models.IntentCount, error)
}

type conversationRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db, now: time.Now}
}

func (r *conversationRepo) SaveMessage(ctx context.Context, msg *models.Conversation) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// History returns the last limit messages, oldest first.
func (r *conversationRepo) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Conversation, error) {
	var msgs []models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// RecentContext is History shaped as chat turns for the classifier.
func (r *conversationRepo) RecentContext(ctx context.Context, userID uuid.UUID, limit int) ([]llm.Message, error) {
	msgs, err := r.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.MessageType == models.MessageTypeBot {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.MessageText})
	}
	return out, nil
}

func (r *conversationRepo) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", r.now().Add(-age)).
		Delete(&models.Conversation{})
	return res.RowsAffected, res.Error
}

func (r *conversationRepo) IntentStats(ctx context.Context, since time.Time) ([]models.IntentCount, error) {
	var stats []models.IntentCount
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Select("intent, COUNT(*) AS count, AVG(confidence) AS avg_confidence").
		Where("message_type = ? AND intent <> '' AND created_at >= ?", models.MessageTypeUser, since).
		Group("intent").
		Order("count DESC").
		Scan(&stats).Error
	return stats, err
}
