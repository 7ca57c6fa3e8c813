package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/pagination"
)

// Repository persists orders, their items and the activity log.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items", "Payments", "Activities").Create(order).Error
}

func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindByID loads the order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindDetail loads items, payments and the activity log.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		Preload("Payments", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		Preload("Activities", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByID loads the order row with SELECT ... FOR UPDATE.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns a newest-first page of the user's orders.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var rows []models.Order
	query := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		Where("user_id = ?", userID)
	if err := pagination.Apply(query, cursor, params.Limit).Find(&rows).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

// Update writes the given columns and bumps updated_at.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	columns["updated_at"] = time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(columns).Error
}

// SetGatewayOrderID stores the gateway order id unless one was stored concurrently.
func (r *Repository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND gateway_order_id IS NULL", id).
		Updates(map[string]any{"gateway_order_id": gatewayOrderID, "updated_at": time.Now().UTC()})
	return res.RowsAffected == 1, res.Error
}

// ListStaleUnpaid returns ids of unpaid orders awaiting payment created before cutoff, oldest first.
func (r *Repository) ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("paid = ? AND status IN ? AND created_at < ?", false,
			[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusPaymentFailed}, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// AppendActivity inserts an audit entry. Activities are never updated or deleted.
func (r *Repository) AppendActivity(ctx context.Context, activity *models.OrderActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *Repository) ListActivities(ctx context.Context, orderID uuid.UUID) ([]models.OrderActivity, error) {
	var rows []models.OrderActivity
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
