package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order status constants
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Order is a confirmed purchase. TotalAmount always equals the sum of its item subtotals.
type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderNumber string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"order_number"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount float64   `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`

	DeliveryAddress string `gorm:"type:text" json:"delivery_address"`
	DeliveryPhone   string `gorm:"type:varchar(20)" json:"delivery_phone"`
	Notes           string `gorm:"type:text" json:"notes,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate sets UUID before creating
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is one product line, priced at the moment of purchase.
type OrderItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uint      `gorm:"not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(200);not null" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal    float64   `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}

// TableName specifies the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// OrderLine is a requested product and quantity.
type OrderLine struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderInput is everything needed to place an order atomically.
type CreateOrderInput struct {
	UserID          uuid.UUID   `json:"user_id" validate:"required"`
	Items           []OrderLine `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress string      `json:"delivery_address" validate:"required"`
	DeliveryPhone   string      `json:"delivery_phone" validate:"required,peru_mobile"`
	Notes           string      `json:"notes,omitempty"`
}
