package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a customer reached through a messaging channel.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Channel    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_users_channel_external" json:"channel"`
	ExternalID string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_users_channel_external" json:"external_id"` // PSID or phone

	FirstName string `gorm:"type:varchar(100)" json:"first_name,omitempty"`
	LastName  string `gorm:"type:varchar(100)" json:"last_name,omitempty"`
	FullName  string `gorm:"type:varchar(200)" json:"full_name,omitempty"`
	Phone     string `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Address   string `gorm:"type:text" json:"address,omitempty"`
	Email     string `gorm:"type:varchar(150)" json:"email,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// BeforeCreate sets UUID before creating
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasDeliveryData reports whether an order can be placed without asking for contact details.
func (u *User) HasDeliveryData() bool {
	return u.Phone != "" && u.Address != ""
}

// DisplayName is the name used in greetings.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.FullName
}

// ContactData is a partial contact update; empty fields leave the stored value alone.
type ContactData struct {
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,peru_mobile"`
	Address  string `json:"address,omitempty" validate:"omitempty,max=500"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}
