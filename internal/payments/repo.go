package payments

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
)

// Repository persists gateway payment records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Upsert inserts the payment or refreshes the row already stored under its gateway payment id.
// The owning order of an existing row is never changed.
func (r *Repository) Upsert(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "gateway_payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount",
			"currency",
			"method",
			"status",
			"raw_response",
			"error_code",
			"error_description",
			"error_source",
			"error_step",
			"error_reason",
			"updated_at",
		}),
	}).Create(payment).Error
}

// FindByGatewayPaymentID returns nil when no row exists.
func (r *Repository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "gateway_payment_id = ?", gatewayPaymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
