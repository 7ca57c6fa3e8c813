// Package dbtest opens throwaway SQLite databases carrying the full schema for package tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
)

// ActiveCartIndexSQL allows at most one active cart per user.
const ActiveCartIndexSQL = "CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_user_active ON carts (user_id) WHERE status = 'active'"

// Open returns an in-memory database private to t. Timestamps are written in UTC so
// string comparisons on created_at behave like Postgres timestamptz comparisons.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:dbtest_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.OrderActivity{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	// AutoMigrate has no partial indexes; mirror the one the carts migration creates.
	if err := conn.Exec(ActiveCartIndexSQL).Error; err != nil {
		t.Fatalf("active cart index: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func SeedUser(t testing.TB, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:     "buyer-" + uuid.NewString()[:8] + "@example.com",
		FirstName: "Asha",
		LastName:  "Verma",
		Phone:     "9876543210",
		Role:      enums.UserRoleCustomer,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// ProductOpts describes a seeded product. Zero Price defaults to 100.00.
type ProductOpts struct {
	Name           string
	Price          string
	Quantity       int
	TrackQuantity  bool
	AllowBackorder bool
	Inactive       bool
}

func SeedProduct(t testing.TB, conn *gorm.DB, opts ProductOpts) *models.Product {
	t.Helper()
	price := decimal.NewFromInt(100)
	if opts.Price != "" {
		price = decimal.RequireFromString(opts.Price)
	}
	name := opts.Name
	if name == "" {
		name = "Monstera Deliciosa"
	}
	product := &models.Product{
		Name:           name,
		SKU:            "SKU-" + uuid.NewString()[:8],
		Price:          price,
		Quantity:       opts.Quantity,
		TrackQuantity:  opts.TrackQuantity,
		AllowBackorder: opts.AllowBackorder,
		IsActive:       !opts.Inactive,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// ReloadProduct reads the current row, failing the test when it is gone.
func ReloadProduct(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}

// OrderOpts describes a seeded order. Status defaults to pending and Total to 1180.00.
type OrderOpts struct {
	UserID         *uuid.UUID
	CartID         *uuid.UUID
	Status         enums.OrderStatus
	Total          string
	Paid           bool
	GatewayOrderID string
	CreatedAt      time.Time
	Items          []OrderItemOpts
}

type OrderItemOpts struct {
	Product  *models.Product
	Quantity int
}

func SeedOrder(t testing.TB, conn *gorm.DB, opts OrderOpts) *models.Order {
	t.Helper()
	status := opts.Status
	if status == "" {
		status = enums.OrderStatusPending
	}
	total := decimal.RequireFromString("1180.00")
	if opts.Total != "" {
		total = decimal.RequireFromString(opts.Total)
	}
	order := &models.Order{
		OrderNumber:  "ORD-20260301-" + uuid.NewString()[:6],
		UserID:       opts.UserID,
		CartID:       opts.CartID,
		Email:        "buyer@example.com",
		FirstName:    "Asha",
		LastName:     "Verma",
		Phone:        "9876543210",
		Address:      "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PostalCode:   "560001",
		Country:      "India",
		Status:       status,
		Currency:     "INR",
		Subtotal:     total,
		TaxAmount:    decimal.Zero,
		ShippingCost: decimal.Zero,
		Discount:     decimal.Zero,
		Total:        total,
		Paid:         opts.Paid,
		CreatedAt:    opts.CreatedAt,
	}
	if opts.GatewayOrderID != "" {
		gid := opts.GatewayOrderID
		order.GatewayOrderID = &gid
	}
	if err := conn.Omit("Items", "Payments", "Activities").Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	for _, item := range opts.Items {
		productID := item.Product.ID
		row := models.OrderItem{
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: item.Product.Name,
			SKU:         item.Product.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.Product.Price,
			LineTotal:   item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if err := conn.Create(&row).Error; err != nil {
			t.Fatalf("seed order item: %v", err)
		}
		order.Items = append(order.Items, row)
	}
	return order
}
