package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageTypeUser = "user"
	MessageTypeBot  = "bot"
)

// Conversation is one logged message, inbound or outbound.
type Conversation struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	MessageType string         `gorm:"type:varchar(10);not null" json:"message_type"`
	MessageText string         `gorm:"type:text" json:"message_text"`
	Intent      string         `gorm:"type:varchar(50);index" json:"intent,omitempty"`
	Confidence  float64        `gorm:"type:decimal(4,3)" json:"confidence,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (Conversation) TableName() string {
	return "conversations"
}

// BeforeCreate sets UUID before creating
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IntentCount is one row of the intent statistics report.
type IntentCount struct {
	Intent        string  `json:"intent"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}
