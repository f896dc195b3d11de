package models

import (
	"time"

	"gorm.io/gorm"
)

// PlaceholderImage is shown for products without a photo.
const PlaceholderImage = "https://via.placeholder.com/300x200?text=Producto"

// Product represents a product in the catalog
type Product struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(200);not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Category    string `gorm:"type:varchar(100);index" json:"category,omitempty"`

	// Pricing & Stock
	Price float64 `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	Stock int     `gorm:"type:integer;not null;default:0" json:"stock"`
	Unit  string  `gorm:"type:varchar(20);default:'unidad'" json:"unit"`

	ImageURL string `gorm:"type:text" json:"image_url,omitempty"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// IsAvailable checks if product is available for sale
func (p *Product) IsAvailable() bool {
	return p.IsActive && p.Stock > 0
}

func (p *Product) Image() string {
	if p.ImageURL == "" {
		return PlaceholderImage
	}
	return p.ImageURL
}

func (p *Product) UnitLabel() string {
	if p.Unit == "" {
		return "unidad"
	}
	return p.Unit
}
