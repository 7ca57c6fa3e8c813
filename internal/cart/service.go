package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/internal/stock"
	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

var (
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrItemNotFound       = errors.New("item not in cart")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockPreviewer interface {
	Preview(ctx context.Context, lines []stock.Line) (*stock.Result, error)
}

// Service exposes the cart store operations.
type Service interface {
	GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, input AddItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*RemoveResult, error)
	View(ctx context.Context, userID uuid.UUID) (*CartView, error)
	LockActiveCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	CreateCartForNewUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	ConvertCartToOrder(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type service struct {
	repo  *Repository
	tx    txRunner
	guard stockPreviewer
	logg  *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, guard stockPreviewer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if guard == nil {
		return nil, fmt.Errorf("stock guard required")
	}
	return &service{repo: repo, tx: tx, guard: guard, logg: logg}, nil
}

type AddItemInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	// Replace sets the quantity instead of adding to it.
	Replace bool
}

type RemoveResult struct {
	Removed bool
	Cart    *models.Cart
}

// CartView is the read model for the cart page. Warnings preview what checkout would adjust.
type CartView struct {
	Cart      *models.Cart
	Subtotal  decimal.Decimal
	ItemCount int
	Warnings  []stock.Adjustment
}

func (s *service) GetOrCreateActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		active, err := s.activeCart(ctx, repo, userID)
		if err != nil {
			return err
		}
		cart, err = repo.FindWithItems(ctx, active.ID)
		return err
	})
	if err != nil {
		return nil, asDependency(err, "load cart")
	}
	return cart, nil
}

// activeCart returns the single active cart, demoting extras and creating one when none exists.
func (s *service) activeCart(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	carts, err := repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(carts) > 0 {
		keep := carts[0]
		if len(carts) > 1 {
			demoted, err := repo.DemoteActive(ctx, userID, keep.ID)
			if err != nil {
				return nil, err
			}
			if s.logg != nil {
				s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
					"user_id": userID.String(),
					"cart_id": keep.ID.String(),
					"demoted": demoted,
				}), "multiple active carts found; demoted extras")
			}
		}
		return &keep, nil
	}

	created, err := repo.CreateActive(ctx, userID)
	if err == nil {
		return created, nil
	}
	if !db.IsUniqueViolationOn(err, "ux_carts_user_active", "carts.user_id") {
		return nil, err
	}
	carts, err = repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, errors.New("active cart vanished after concurrent create")
	}
	return &carts[0], nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.Cart, error) {
	if input.UserID == uuid.Nil || input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := s.lockActive(ctx, repo, input.UserID)
		if err != nil {
			return err
		}
		if err := s.setQuantity(ctx, repo, locked.ID, input.ProductID, input.Quantity, input.Replace); err != nil {
			return err
		}
		cart, err = repo.FindWithItems(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, asDependency(err, "add cart item")
	}
	return cart, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if qty == 0 {
		res, err := s.RemoveItem(ctx, userID, productID)
		if err != nil {
			return nil, err
		}
		return res.Cart, nil
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := s.lockActive(ctx, repo, userID)
		if err != nil {
			return err
		}
		item, err := repo.FindItem(ctx, locked.ID, productID)
		if err != nil {
			return err
		}
		if item == nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrItemNotFound, "product is not in the cart")
		}
		if err := s.setQuantity(ctx, repo, locked.ID, productID, qty, true); err != nil {
			return err
		}
		cart, err = repo.FindWithItems(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, asDependency(err, "update cart item")
	}
	return cart, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*RemoveResult, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and product id are required")
	}
	result := &RemoveResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := s.lockActive(ctx, repo, userID)
		if err != nil {
			return err
		}
		removed, err := repo.DeleteItem(ctx, locked.ID, productID)
		if err != nil {
			return err
		}
		result.Removed = removed > 0
		if result.Removed {
			if _, err := repo.RecomputeTotal(ctx, locked.ID); err != nil {
				return err
			}
		}
		result.Cart, err = repo.FindWithItems(ctx, locked.ID)
		return err
	})
	if err != nil {
		return nil, asDependency(err, "remove cart item")
	}
	return result, nil
}

func (s *service) View(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &CartView{
		Cart:      cart,
		Subtotal:  cart.ComputeTotal(),
		ItemCount: cart.ItemCount(),
	}
	if len(cart.Items) == 0 {
		return view, nil
	}
	preview, err := s.guard.Preview(ctx, Lines(cart))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "preview stock")
	}
	view.Warnings = preview.Adjustments
	return view, nil
}

// LockActiveCart returns the caller's active cart locked FOR UPDATE with items and products loaded.
func (s *service) LockActiveCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	locked, err := s.lockActive(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	return repo.FindWithItems(ctx, locked.ID)
}

// CreateCartForNewUser demotes any active cart and starts a fresh one in the caller's transaction.
func (s *service) CreateCartForNewUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	if _, err := repo.DemoteActive(ctx, userID, uuid.Nil); err != nil {
		return nil, err
	}
	return repo.CreateActive(ctx, userID)
}

// ConvertCartToOrder consumes the cart. Converting an already converted cart is a no-op.
func (s *service) ConvertCartToOrder(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)
	cart, err := repo.LockByID(ctx, cartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := repo.DeleteItems(ctx, cart.ID); err != nil {
		return err
	}
	if cart.Status == enums.CartStatusConverted {
		return nil
	}
	return repo.MarkConverted(ctx, cart.ID)
}

func (s *service) lockActive(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Cart, error) {
	active, err := s.activeCart(ctx, repo, userID)
	if err != nil {
		return nil, err
	}
	return repo.LockByID(ctx, active.ID)
}

// setQuantity enforces the product rules and writes the line, then refreshes the cart total.
// The unit price captured when the line was first added is kept on updates.
func (s *service) setQuantity(ctx context.Context, repo *Repository, cartID, productID uuid.UUID, qty int, replace bool) error {
	product, err := repo.FindProduct(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return err
	}
	if !product.IsActive {
		return pkgerrors.Wrap(pkgerrors.CodeProductUnavailable, ErrProductUnavailable, fmt.Sprintf("%s is not available", product.Name)).
			WithDetails(map[string]any{"productId": product.ID})
	}

	item, err := repo.FindItem(ctx, cartID, productID)
	if err != nil {
		return err
	}
	want := qty
	if item != nil && !replace {
		want = item.Quantity + qty
	}
	if product.LimitsQuantity() && want > product.Quantity {
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, ErrInsufficientStock, fmt.Sprintf("only %d left in stock", product.Quantity)).
			WithDetails(map[string]any{"productId": product.ID, "available": product.Quantity})
	}

	if item == nil {
		err = repo.CreateItem(ctx, &models.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  want,
			UnitPrice: product.Price,
		})
	} else {
		err = repo.UpdateItemQuantity(ctx, item.ID, want)
	}
	if err != nil {
		return err
	}
	_, err = repo.RecomputeTotal(ctx, cartID)
	return err
}

// Lines projects the cart items onto stock guard lines.
func Lines(cart *models.Cart) []stock.Line {
	lines := make([]stock.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, stock.Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// asDependency keeps typed errors and wraps anything else as a dependency failure.
func asDependency(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
