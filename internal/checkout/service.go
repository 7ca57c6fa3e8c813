package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/internal/cart"
	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/internal/stock"
	"github.com/angelsplants/checkout-backend/pkg/config"
	"github.com/angelsplants/checkout-backend/pkg/db"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/outbox/payloads"
	"github.com/angelsplants/checkout-backend/pkg/razorpay"
)

const (
	maxOrderNumberAttempts = 5
	orderNumberConstraint  = "ux_orders_order_number"
	orderNumberColumn      = "orders.order_number"
	orderCreateSavepoint   = "order_number_attempt"
	paymentMethodRazorpay  = "razorpay"
	defaultCreateRetryWait = 500 * time.Millisecond
)

var ErrEmptyCart = errors.New("cart is empty")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	LockActiveCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error)
	ConvertCartToOrder(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, lines []stock.Line) (*stock.Result, error)
	Decrement(ctx context.Context, tx *gorm.DB, items []stock.ValidatedItem) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway is the part of the Razorpay client checkout uses to open a payment.
type Gateway interface {
	CreateOrder(ctx context.Context, in razorpay.CreateOrderInput) (*razorpay.GatewayOrder, error)
	KeyID() string
	Currency() string
}

// Service turns the active cart into a priced order and opens gateway payments for it.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	StartPayment(ctx context.Context, userID, orderID uuid.UUID) (*PaymentSession, error)
	BuildOrder(ctx context.Context, tx *gorm.DB, input BuildInput) (*models.Order, error)
}

type Deps struct {
	Tx      txRunner
	Carts   cartStore
	Stock   stockReserver
	Orders  *orders.Repository
	Outbox  outboxPublisher
	Gateway Gateway
	Config  config.CheckoutConfig
	Logger  *logger.Logger

	// Now and NewOrderNumber default to the wall clock and NewOrderNumber.
	Now            func() time.Time
	NewOrderNumber func(prefix string, now time.Time) (string, error)
	RetryWait      time.Duration
}

type service struct {
	tx             txRunner
	carts          cartStore
	stock          stockReserver
	orders         *orders.Repository
	outbox         outboxPublisher
	gateway        Gateway
	cfg            config.CheckoutConfig
	logg           *logger.Logger
	now            func() time.Time
	newOrderNumber func(prefix string, now time.Time) (string, error)
	retryWait      time.Duration
}

func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Carts == nil:
		return nil, fmt.Errorf("cart store required")
	case deps.Stock == nil:
		return nil, fmt.Errorf("stock guard required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	s := &service{
		tx:             deps.Tx,
		carts:          deps.Carts,
		stock:          deps.Stock,
		orders:         deps.Orders,
		outbox:         deps.Outbox,
		gateway:        deps.Gateway,
		cfg:            deps.Config,
		logg:           deps.Logger,
		now:            deps.Now,
		newOrderNumber: deps.NewOrderNumber,
		retryWait:      deps.RetryWait,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newOrderNumber == nil {
		s.newOrderNumber = NewOrderNumber
	}
	if s.retryWait <= 0 {
		s.retryWait = defaultCreateRetryWait
	}
	return s, nil
}

type CheckoutInput struct {
	UserID   uuid.UUID
	Customer CustomerDetails
}

// CheckoutResult is returned even when opening the payment failed, so the caller can
// retry StartPayment for the order that was created.
type CheckoutResult struct {
	Order       *models.Order
	Adjustments []stock.Adjustment
	Payment     *PaymentSession
}

// Prefill seeds the hosted payment form.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type PaymentSession struct {
	KeyID          string    `json:"keyId"`
	GatewayOrderID string    `json:"gatewayOrderId"`
	AmountPaise    int64     `json:"amount"`
	Currency       string    `json:"currency"`
	OrderID        uuid.UUID `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	Prefill        Prefill   `json:"prefill"`
}

type BuildInput struct {
	UserID      uuid.UUID
	Cart        *models.Cart
	Items       []stock.ValidatedItem
	Adjustments []stock.Adjustment
	Customer    CustomerDetails
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	customer, err := input.Customer.Normalize(s.cfg.DefaultCountry)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	result := &CheckoutResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		active, err := s.carts.LockActiveCart(ctx, tx, input.UserID)
		if err != nil {
			return err
		}
		if len(active.Items) == 0 {
			return emptyCartError(nil)
		}
		reserved, err := s.stock.Reserve(ctx, tx, cart.Lines(active))
		if err != nil {
			return err
		}
		if reserved.Empty() {
			return emptyCartError(reserved.Adjustments)
		}
		order, err := s.BuildOrder(ctx, tx, BuildInput{
			UserID:      input.UserID,
			Cart:        active,
			Items:       reserved.Items,
			Adjustments: reserved.Adjustments,
			Customer:    customer,
		})
		if err != nil {
			return err
		}
		result.Order = order
		result.Adjustments = reserved.Adjustments
		return nil
	})
	if err != nil {
		return nil, mapCheckoutError(err)
	}

	ctx = s.logg.WithOrderID(ctx, result.Order.ID.String(), "")
	s.logg.Info(ctx, "order created from cart")

	session, err := s.StartPayment(ctx, input.UserID, result.Order.ID)
	if err != nil {
		return result, err
	}
	result.Payment = session
	return result, nil
}

// BuildOrder writes the order, its items and the audit entry inside the caller's transaction,
// after decrementing stock for every validated item.
func (s *service) BuildOrder(ctx context.Context, tx *gorm.DB, input BuildInput) (*models.Order, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	if input.Cart == nil || len(input.Items) == 0 {
		return nil, emptyCartError(input.Adjustments)
	}
	if err := s.stock.Decrement(ctx, tx, input.Items); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range input.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(s.cfg.TaxRate).Round(2)
	shipping := s.cfg.ShippingFee.Round(2)
	if subtotal.IsZero() {
		shipping = decimal.Zero
	}
	discount := decimal.Zero
	total := subtotal.Add(tax).Add(shipping).Sub(discount)

	userID := input.UserID
	cartID := input.Cart.ID
	customer := input.Customer
	order := &models.Order{
		UserID:        &userID,
		CartID:        &cartID,
		Email:         customer.Email,
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		Phone:         customer.Phone,
		Address:       customer.Address,
		City:          customer.City,
		State:         customer.State,
		PostalCode:    customer.PostalCode,
		Country:       customer.Country,
		Status:        enums.OrderStatusPending,
		Currency:      s.gateway.Currency(),
		Subtotal:      subtotal,
		TaxAmount:     tax,
		ShippingCost:  shipping,
		Discount:      discount,
		Total:         total,
		PaymentMethod: paymentMethodRazorpay,
	}
	if customer.Notes != "" {
		notes := customer.Notes
		order.Notes = &notes
	}

	repo := s.orders.WithTx(tx)
	if err := s.createWithUniqueNumber(ctx, tx, repo, order); err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, validated := range input.Items {
		productID := validated.Product.ID
		items = append(items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: validated.Product.Name,
			SKU:         validated.Product.SKU,
			Quantity:    validated.Quantity,
			UnitPrice:   validated.UnitPrice,
			LineTotal:   validated.LineTotal().Round(2),
		})
	}
	if err := repo.CreateItems(ctx, items); err != nil {
		return nil, err
	}
	order.Items = items

	actor := orders.UserActor(userID, enums.UserRoleCustomer)
	details := map[string]any{
		"orderNumber": order.OrderNumber,
		"itemCount":   len(items),
		"total":       total.StringFixed(2),
	}
	if len(input.Adjustments) > 0 {
		details["adjustments"] = input.Adjustments
	}
	status := enums.OrderStatusPending
	activity := orders.NewActivity(order.ID, enums.ActivityOrderCreated, actor, orders.WithDetails(details))
	activity.NewStatus = &status
	if err := repo.AppendActivity(ctx, activity); err != nil {
		return nil, err
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor.Ref(),
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       total.StringFixed(2),
			Currency:    order.Currency,
			ItemCount:   len(items),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.ConvertCartToOrder(ctx, tx, cartID); err != nil {
		return nil, err
	}
	return order, nil
}

// createWithUniqueNumber inserts the order inside a savepoint, drawing a new number when the
// previous one collided.
func (s *service) createWithUniqueNumber(ctx context.Context, tx *gorm.DB, repo *orders.Repository, order *models.Order) error {
	var lastErr error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		number, err := s.newOrderNumber(s.cfg.OrderNumberPrefix, s.now())
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.SavePoint(orderCreateSavepoint).Error; err != nil {
			return err
		}
		lastErr = repo.Create(ctx, order)
		if lastErr == nil {
			return nil
		}
		if err := tx.RollbackTo(orderCreateSavepoint).Error; err != nil {
			return err
		}
		if !db.IsUniqueViolationOn(lastErr, orderNumberConstraint, orderNumberColumn) {
			return lastErr
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_number": number, "attempt": attempt}), "order number collision")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "could not allocate an order number")
}

// StartPayment opens (or reopens) the gateway order for an unpaid order owned by userID.
// The gateway call happens outside any database transaction.
func (s *service) StartPayment(ctx context.Context, userID, orderID uuid.UUID) (*PaymentSession, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !order.OwnedBy(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.Paid || !order.Status.AwaitingPayment() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"orderId": order.ID, "status": order.Status, "paid": order.Paid})
	}
	if order.GatewayOrderID != nil && *order.GatewayOrderID != "" {
		return s.session(order), nil
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String(), "")
	amountPaise := razorpay.ToPaise(order.Total)
	input := razorpay.CreateOrderInput{
		AmountPaise: amountPaise,
		Currency:    order.Currency,
		Receipt:     razorpay.ReceiptFor(order.ID),
		Notes: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	}

	var created *razorpay.GatewayOrder
	backoff := retry.WithMaxRetries(1, retry.NewConstant(s.retryWait))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		gatewayOrder, err := s.gateway.CreateOrder(ctx, input)
		if err != nil {
			if permanentGatewayError(err) {
				return err
			}
			s.logg.Warn(ctx, "gateway order creation failed, retrying")
			return retry.RetryableError(err)
		}
		created = gatewayOrder
		return nil
	})
	if err != nil {
		s.logg.Error(ctx, "could not open gateway order", err)
		return nil, paymentStartError(order.ID, err)
	}

	stored, err := s.orders.SetGatewayOrderID(ctx, order.ID, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store gateway order id")
	}
	if !stored {
		// a concurrent StartPayment stored its id first; the receipt is shared so both map to one gateway order
		order, err = s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return s.session(order), nil
	}
	order.GatewayOrderID = &created.ID
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String(), created.ID), "gateway order opened")
	return s.session(order), nil
}

func (s *service) session(order *models.Order) *PaymentSession {
	gatewayOrderID := ""
	if order.GatewayOrderID != nil {
		gatewayOrderID = *order.GatewayOrderID
	}
	currency := order.Currency
	if currency == "" {
		currency = s.gateway.Currency()
	}
	return &PaymentSession{
		KeyID:          s.gateway.KeyID(),
		GatewayOrderID: gatewayOrderID,
		AmountPaise:    razorpay.ToPaise(order.Total),
		Currency:       currency,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Prefill: Prefill{
			Name:    order.CustomerName(),
			Email:   order.Email,
			Contact: order.Phone,
		},
	}
}

func emptyCartError(adjustments []stock.Adjustment) error {
	err := pkgerrors.Wrap(pkgerrors.CodeEmptyCart, ErrEmptyCart, "your cart is empty")
	if len(adjustments) > 0 {
		return err.WithDetails(map[string]any{"adjustments": adjustments})
	}
	return err
}

// permanentGatewayError reports failures a second attempt cannot fix.
func permanentGatewayError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount) || pkgerrors.IsCode(err, pkgerrors.CodeValidation)
}

func paymentStartError(orderID uuid.UUID, err error) error {
	details := map[string]any{"orderId": orderID}
	if pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount) {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, pkgerrors.As(err).Message()).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "could not start the payment, please try again").WithDetails(details)
}

func mapCheckoutError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
}
