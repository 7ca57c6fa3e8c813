package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// OrderActivity is an append-only audit entry for an order.
type OrderActivity struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ActivityType enums.ActivityType `gorm:"column:activity_type;type:activity_type;not null"`
	ActorID      *uuid.UUID         `gorm:"column:actor_id;type:uuid"`
	ActorRole    string             `gorm:"column:actor_role;not null"`
	OldStatus    *enums.OrderStatus `gorm:"column:old_status;type:order_status"`
	NewStatus    *enums.OrderStatus `gorm:"column:new_status;type:order_status"`
	Note         *string            `gorm:"column:note"`
	Details      map[string]any     `gorm:"column:details;type:jsonb;serializer:json"`
	IPAddress    *string            `gorm:"column:ip_address"`
	UserAgent    *string            `gorm:"column:user_agent"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (a *OrderActivity) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
