package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product carries the price and inventory fields checkout depends on.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	SKU            string          `gorm:"column:sku;uniqueIndex:ux_products_sku;not null"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	TrackQuantity  bool            `gorm:"column:track_quantity;not null"`
	AllowBackorder bool            `gorm:"column:allow_backorder;not null"`
	IsActive       bool            `gorm:"column:is_active;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// LimitsQuantity reports whether requested quantities are capped by stock.
func (p Product) LimitsQuantity() bool {
	return p.TrackQuantity && !p.AllowBackorder
}
