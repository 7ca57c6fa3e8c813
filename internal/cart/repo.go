package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
)

const createCartSavepoint = "cart_create_active"

// Repository exposes persistence operations for carts and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
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

// ListActiveByUser returns every active cart for the user, most recently updated first.
func (r *Repository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Order("updated_at DESC").
		Order("created_at DESC").
		Find(&carts).Error
	return carts, err
}

// LockByID loads the cart row with SELECT ... FOR UPDATE.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindWithItems loads a cart and its items with their products, oldest line first.
func (r *Repository) FindWithItems(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC") }).
		Preload("Items.Product").
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateActive inserts an active cart inside a savepoint so a unique-index loss
// leaves the surrounding transaction usable.
func (r *Repository) CreateActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.SavePoint(createCartSavepoint).Error; err != nil {
		return nil, err
	}
	cart := &models.Cart{UserID: userID, Status: enums.CartStatusActive, Total: decimal.Zero}
	if err := tx.Create(cart).Error; err != nil {
		if rbErr := tx.RollbackTo(createCartSavepoint).Error; rbErr != nil {
			return nil, errors.Join(err, rbErr)
		}
		return nil, err
	}
	return cart, nil
}

// DemoteActive marks every active cart of the user except keep as abandoned.
func (r *Repository) DemoteActive(ctx context.Context, userID, keep uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive)
	if keep != uuid.Nil {
		query = query.Where("id <> ?", keep)
	}
	res := query.Updates(map[string]any{"status": enums.CartStatusAbandoned, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindItem returns nil without error when the product is not in the cart.
func (r *Repository) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now().UTC()}).Error
}

// DeleteItem reports how many rows were removed.
func (r *Repository) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// RecomputeTotal stores sum(unit_price * quantity) over the cart's current items.
func (r *Repository) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return decimal.Zero, err
	}
	total := models.Cart{Items: items}.ComputeTotal()
	err := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"total": total, "updated_at": time.Now().UTC()}).Error
	return total, err
}

// MarkConverted sets the converted status and zeroes the total.
func (r *Repository) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{
			"status":     enums.CartStatusConverted,
			"total":      decimal.Zero,
			"updated_at": time.Now().UTC(),
		}).Error
}
