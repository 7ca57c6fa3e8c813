package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
)

type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	OrderNumber     string            `json:"orderNumber"`
	Status          enums.OrderStatus `json:"status"`
	Email           string            `json:"email"`
	CustomerName    string            `json:"customerName"`
	Phone           string            `json:"phone"`
	ShippingAddress AddressDTO        `json:"shippingAddress"`
	Currency        string            `json:"currency"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	TaxAmount       decimal.Decimal   `json:"taxAmount"`
	ShippingCost    decimal.Decimal   `json:"shippingCost"`
	Discount        decimal.Decimal   `json:"discount"`
	Total           decimal.Decimal   `json:"total"`
	Paid            bool              `json:"paid"`
	PaidAt          *time.Time        `json:"paidAt,omitempty"`
	PaymentMethod   string            `json:"paymentMethod,omitempty"`
	TrackingNumber  *string           `json:"trackingNumber,omitempty"`
	TrackingURL     *string           `json:"trackingUrl,omitempty"`
	Items           []OrderItemDTO    `json:"items"`
	CreatedAt       time.Time         `json:"createdAt"`
}

type AddressDTO struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type OrderItemDTO struct {
	ProductID   *uuid.UUID      `json:"productId,omitempty"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	GatewayPaymentID string              `json:"gatewayPaymentId"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	Method           string              `json:"method,omitempty"`
	Status           enums.PaymentStatus `json:"status"`
	ErrorCode        *string             `json:"errorCode,omitempty"`
	ErrorDescription *string             `json:"errorDescription,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
}

type ActivityDTO struct {
	ID           uuid.UUID          `json:"id"`
	ActivityType enums.ActivityType `json:"activityType"`
	ActorID      *uuid.UUID         `json:"actorId,omitempty"`
	ActorRole    string             `json:"actorRole"`
	OldStatus    *enums.OrderStatus `json:"oldStatus,omitempty"`
	NewStatus    *enums.OrderStatus `json:"newStatus,omitempty"`
	Note         *string            `json:"note,omitempty"`
	Details      map[string]any     `json:"details,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

// StaffOrderDTO adds the payment and audit trail to the customer view.
type StaffOrderDTO struct {
	OrderDTO
	UserID           *uuid.UUID    `json:"userId,omitempty"`
	GatewayOrderID   *string       `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID *string       `json:"gatewayPaymentId,omitempty"`
	Notes            *string       `json:"notes,omitempty"`
	Payments         []PaymentDTO  `json:"payments"`
	Activities       []ActivityDTO `json:"activities"`
}

func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       o.Status,
		Email:        o.Email,
		CustomerName: o.CustomerName(),
		Phone:        o.Phone,
		ShippingAddress: AddressDTO{
			Address:    o.Address,
			City:       o.City,
			State:      o.State,
			PostalCode: o.PostalCode,
			Country:    o.Country,
		},
		Currency:       o.Currency,
		Subtotal:       o.Subtotal,
		TaxAmount:      o.TaxAmount,
		ShippingCost:   o.ShippingCost,
		Discount:       o.Discount,
		Total:          o.Total,
		Paid:           o.Paid,
		PaidAt:         o.PaidAt,
		PaymentMethod:  o.PaymentMethod,
		TrackingNumber: o.TrackingNumber,
		TrackingURL:    o.TrackingURL,
		Items:          make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:      o.CreatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return dto
}

func StaffFromModel(o *models.Order) StaffOrderDTO {
	dto := StaffOrderDTO{
		OrderDTO:         FromModel(o),
		UserID:           o.UserID,
		GatewayOrderID:   o.GatewayOrderID,
		GatewayPaymentID: o.GatewayPaymentID,
		Notes:            o.Notes,
		Payments:         make([]PaymentDTO, 0, len(o.Payments)),
		Activities:       ActivitiesFromModels(o.Activities),
	}
	for _, p := range o.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:               p.ID,
			GatewayPaymentID: p.GatewayPaymentID,
			Amount:           p.Amount,
			Currency:         p.Currency,
			Method:           p.Method,
			Status:           p.Status,
			ErrorCode:        p.ErrorCode,
			ErrorDescription: p.ErrorDescription,
			CreatedAt:        p.CreatedAt,
		})
	}
	return dto
}

func ActivitiesFromModels(rows []models.OrderActivity) []ActivityDTO {
	out := make([]ActivityDTO, 0, len(rows))
	for _, a := range rows {
		out = append(out, ActivityDTO{
			ID:           a.ID,
			ActivityType: a.ActivityType,
			ActorID:      a.ActorID,
			ActorRole:    a.ActorRole,
			OldStatus:    a.OldStatus,
			NewStatus:    a.NewStatus,
			Note:         a.Note,
			Details:      a.Details,
			CreatedAt:    a.CreatedAt,
		})
	}
	return out
}
