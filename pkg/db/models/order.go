package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// Order is the priced record of a checkout attempt. Monetary fields are fixed
// at creation; only status, payment and tracking fields change afterwards.
type Order struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string     `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	CartID      *uuid.UUID `gorm:"column:cart_id;type:uuid"`

	Email      string `gorm:"column:email;not null"`
	FirstName  string `gorm:"column:first_name;not null"`
	LastName   string `gorm:"column:last_name;not null"`
	Phone      string `gorm:"column:phone;not null"`
	Address    string `gorm:"column:address;not null"`
	City       string `gorm:"column:city;not null"`
	State      string `gorm:"column:state;not null"`
	PostalCode string `gorm:"column:postal_code;not null"`
	Country    string `gorm:"column:country;not null"`

	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;index"`
	Currency     string            `gorm:"column:currency;not null"`
	Subtotal     decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount    decimal.Decimal   `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	ShippingCost decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Discount     decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null"`
	Total        decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`

	PaymentMethod    string     `gorm:"column:payment_method"`
	Paid             bool       `gorm:"column:paid;not null"`
	PaidAt           *time.Time `gorm:"column:paid_at"`
	GatewayOrderID   *string    `gorm:"column:gateway_order_id;uniqueIndex:ux_orders_gateway_order_id"`
	GatewayPaymentID *string    `gorm:"column:gateway_payment_id"`
	PaymentSignature *string    `gorm:"column:payment_signature"`

	TrackingNumber *string `gorm:"column:tracking_number"`
	TrackingURL    *string `gorm:"column:tracking_url"`
	Notes          *string `gorm:"column:notes"`

	Items      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments   []Payment       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Activities []OrderActivity `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// CustomerName joins the first and last name for display.
func (o Order) CustomerName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// OwnedBy reports whether the order belongs to userID.
func (o Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID != nil && *o.UserID == userID
}

// OrderItem freezes what was sold. Rows are never updated.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	ProductName string          `gorm:"column:product_name;not null"`
	SKU         string          `gorm:"column:sku;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
