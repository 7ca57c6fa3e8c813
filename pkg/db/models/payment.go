package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// Payment records one gateway payment outcome. GatewayPaymentID is globally
// unique and doubles as the reconciliation idempotency key.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayPaymentID string              `gorm:"column:gateway_payment_id;not null;uniqueIndex:ux_payments_gateway_payment_id"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         string              `gorm:"column:currency;not null"`
	Method           string              `gorm:"column:method"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	RawResponse      json.RawMessage     `gorm:"column:raw_response;type:jsonb"`
	ErrorCode        *string             `gorm:"column:error_code"`
	ErrorDescription *string             `gorm:"column:error_description"`
	ErrorSource      *string             `gorm:"column:error_source"`
	ErrorStep        *string             `gorm:"column:error_step"`
	ErrorReason      *string             `gorm:"column:error_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
