package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

const (
	ReasonUnavailable = "unavailable"
	ReasonOutOfStock  = "out_of_stock"
)

// ErrStockExhausted means a conditional decrement found less stock than validated.
var ErrStockExhausted = errors.New("stock exhausted")

// Line is a requested product quantity.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// ValidatedItem is a line that survived the guard, priced at the product's current price.
type ValidatedItem struct {
	Product   models.Product
	Quantity  int
	UnitPrice decimal.Decimal
}

func (v ValidatedItem) LineTotal() decimal.Decimal {
	return v.UnitPrice.Mul(decimal.NewFromInt(int64(v.Quantity)))
}

// Adjustment is a non-fatal change the guard made to a requested line.
type Adjustment struct {
	Type        enums.StockAdjustmentType `json:"type"`
	ProductID   uuid.UUID                 `json:"productId"`
	ProductName string                    `json:"productName"`
	Requested   int                       `json:"requested"`
	Available   int                       `json:"available"`
	Reason      string                    `json:"reason,omitempty"`
	Message     string                    `json:"message"`
}

type Result struct {
	Items       []ValidatedItem
	Adjustments []Adjustment
}

// Empty reports whether no line survived.
func (r Result) Empty() bool {
	return len(r.Items) == 0
}

// Guard validates requested quantities against product inventory.
type Guard struct {
	db *gorm.DB
}

func NewGuard(conn *gorm.DB) *Guard {
	return &Guard{db: conn}
}

// Reserve locks every referenced product row in ascending id order, then applies the stock rules.
func (g *Guard) Reserve(ctx context.Context, tx *gorm.DB, lines []Line) (*Result, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	products, err := loadProducts(db.ForUpdate(tx.WithContext(ctx)), lines)
	if err != nil {
		return nil, err
	}
	result := evaluate(lines, products)
	return &result, nil
}

// Preview applies the same rules as Reserve without taking locks.
func (g *Guard) Preview(ctx context.Context, lines []Line) (*Result, error) {
	products, err := loadProducts(g.db.WithContext(ctx), lines)
	if err != nil {
		return nil, err
	}
	result := evaluate(lines, products)
	return &result, nil
}

// Decrement subtracts validated quantities. A quantity-limited product whose stock dropped
// below the validated amount fails the whole call with ErrStockExhausted.
func (g *Guard) Decrement(ctx context.Context, tx *gorm.DB, items []ValidatedItem) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	sorted := append([]ValidatedItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Product.ID.String() < sorted[j].Product.ID.String()
	})

	now := time.Now().UTC()
	for _, item := range sorted {
		if !item.Product.TrackQuantity || item.Quantity <= 0 {
			continue
		}
		query := tx.WithContext(ctx).Model(&models.Product{})
		if item.Product.AllowBackorder {
			err := query.Where("id = ?", item.Product.ID).UpdateColumns(map[string]any{
				"quantity":   gorm.Expr("CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END", item.Quantity, item.Quantity),
				"updated_at": now,
			}).Error
			if err != nil {
				return fmt.Errorf("decrement product %s: %w", item.Product.ID, err)
			}
			continue
		}
		res := query.Where("id = ? AND quantity >= ?", item.Product.ID, item.Quantity).UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", item.Quantity),
			"updated_at": now,
		})
		if res.Error != nil {
			return fmt.Errorf("decrement product %s: %w", item.Product.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, ErrStockExhausted, fmt.Sprintf("%s sold out while placing the order", item.Product.Name)).
				WithDetails(map[string]any{"productId": item.Product.ID})
		}
	}
	return nil
}

// Release puts quantities back on tracked products.
func (g *Guard) Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	now := time.Now().UTC()
	for _, line := range lines {
		if line.ProductID == uuid.Nil || line.Quantity <= 0 {
			continue
		}
		err := tx.WithContext(ctx).Model(&models.Product{}).
			Where("id = ? AND track_quantity = ?", line.ProductID, true).
			UpdateColumns(map[string]any{
				"quantity":   gorm.Expr("quantity + ?", line.Quantity),
				"updated_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("release product %s: %w", line.ProductID, err)
		}
	}
	return nil
}

func loadProducts(query *gorm.DB, lines []Line) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var rows []models.Product
	if err := query.Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func evaluate(lines []Line, products map[uuid.UUID]models.Product) Result {
	var result Result
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		product, ok := products[line.ProductID]
		if !ok || !product.IsActive {
			name := product.Name
			if name == "" {
				name = "A product"
			}
			result.Adjustments = append(result.Adjustments, Adjustment{
				Type:        enums.StockAdjustmentRemoved,
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Reason:      ReasonUnavailable,
				Message:     fmt.Sprintf("%s is no longer available and was removed", name),
			})
			continue
		}
		if !product.LimitsQuantity() || product.Quantity >= line.Quantity {
			result.Items = append(result.Items, ValidatedItem{Product: product, Quantity: line.Quantity, UnitPrice: product.Price})
			continue
		}
		if product.Quantity > 0 {
			result.Items = append(result.Items, ValidatedItem{Product: product, Quantity: product.Quantity, UnitPrice: product.Price})
			result.Adjustments = append(result.Adjustments, Adjustment{
				Type:        enums.StockAdjustmentPartial,
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.Quantity,
				Message:     fmt.Sprintf("only %d left in stock for %s", product.Quantity, product.Name),
			})
			continue
		}
		result.Adjustments = append(result.Adjustments, Adjustment{
			Type:        enums.StockAdjustmentRemoved,
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   line.Quantity,
			Reason:      ReasonOutOfStock,
			Message:     fmt.Sprintf("%s is out of stock and was removed", product.Name),
		})
	}
	return result
}
