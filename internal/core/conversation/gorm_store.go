package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StateRecord is the conversation_states row.
type StateRecord struct {
	ID              uint           `gorm:"primaryKey"`
	UserID          string         `gorm:"type:uuid;uniqueIndex;not null"`
	CurrentState    string         `gorm:"type:varchar(50);not null;default:'initial'"`
	Context         datatypes.JSON `gorm:"type:jsonb"`
	LastInteraction time.Time      `gorm:"index;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (StateRecord) TableName() string {
	return "conversation_states"
}

// GormStore keeps states in the SQL database.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Get(ctx context.Context, userID string) (State, error) {
	var rec StateRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Initial(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load conversation state: %w", err)
	}

	c, err := decodeContext(rec.Context)
	if err != nil {
		return State{}, err
	}
	return State{Current: StateName(rec.CurrentState), Context: c, LastInteraction: rec.LastInteraction}, nil
}

func (s *GormStore) Set(ctx context.Context, userID string, state StateName, c Context) error {
	raw, err := encodeContext(c)
	if err != nil {
		return err
	}

	rec := StateRecord{
		UserID:          userID,
		CurrentState:    string(state),
		Context:         datatypes.JSON(raw),
		LastInteraction: s.now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_state", "context", "last_interaction", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	return nil
}

func (s *GormStore) MergeContext(ctx context.Context, userID string, patch Context) (Context, error) {
	return mergeContext(ctx, s, userID, patch)
}

func (s *GormStore) Clear(ctx context.Context, userID string) error {
	return s.Set(ctx, userID, StateInitial, Context{})
}

// ExpireInactive deletes idle rows; a missing row reads back as the initial state.
func (s *GormStore) ExpireInactive(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := s.now().Add(-timeout)
	res := s.db.WithContext(ctx).Where("last_interaction < ?", cutoff).Delete(&StateRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Close() error { return nil }
