package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelsplants/checkout-backend/api/responses"
	"github.com/angelsplants/checkout-backend/api/validators"
	cartsvc "github.com/angelsplants/checkout-backend/internal/cart"
	"github.com/angelsplants/checkout-backend/internal/stock"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

// CartService is the part of the cart store the HTTP layer drives.
type CartService interface {
	View(ctx context.Context, userID uuid.UUID) (*cartsvc.CartView, error)
	AddItem(ctx context.Context, input cartsvc.AddItemInput) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cartsvc.RemoveResult, error)
}

// CartView returns the caller's active cart with stock warnings.
func CartView(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.View(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(view.Cart, view.Warnings))
	}
}

// CartAddItem adds a product to the cart, or sets its quantity when replace is true.
func CartAddItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.AddItem(r.Context(), cartsvc.AddItemInput{
			UserID:    userID,
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			Replace:   payload.Replace,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cart, nil))
	}
}

// CartUpdateItem sets a line's quantity. Zero removes the line.
func CartUpdateItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.UpdateItem(r.Context(), userID, productID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cart, nil))
	}
}

// CartRemoveItem deletes a line. Removing an absent product still succeeds with removed=false.
func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := uuidParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, removeCartItemResponse{
			Removed: result.Removed,
			Cart:    newCartResponse(result.Cart, nil),
		})
	}
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
	Replace   bool      `json:"replace"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=1000"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Items     []cartItemResponse `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	ItemCount int                `json:"itemCount"`
	Warnings  []stock.Adjustment `json:"warnings,omitempty"`
}

type cartItemResponse struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name,omitempty"`
	SKU       string          `json:"sku,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type removeCartItemResponse struct {
	Removed bool         `json:"removed"`
	Cart    cartResponse `json:"cart"`
}

func newCartResponse(cart *models.Cart, warnings []stock.Adjustment) cartResponse {
	if cart == nil {
		return cartResponse{Items: []cartItemResponse{}, Subtotal: decimal.Zero}
	}
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := cartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.SKU = item.Product.SKU
		}
		items = append(items, line)
	}
	return cartResponse{
		ID:        cart.ID,
		Items:     items,
		Subtotal:  cart.ComputeTotal(),
		ItemCount: cart.ItemCount(),
		Warnings:  warnings,
	}
}
