package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/api/responses"
	"github.com/angelsplants/checkout-backend/api/validators"
	checkoutsvc "github.com/angelsplants/checkout-backend/internal/checkout"
	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/internal/stock"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

// CheckoutService is the order builder surface used by the checkout endpoints.
type CheckoutService interface {
	Checkout(ctx context.Context, input checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error)
	StartPayment(ctx context.Context, userID, orderID uuid.UUID) (*checkoutsvc.PaymentSession, error)
}

// Checkout turns the caller's active cart into an order and opens the gateway payment for it.
// When the order was created but the gateway could not be reached, the GATEWAY_ERROR response
// carries the order id so the client can retry with StartPayment.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.CustomerDetails
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), checkoutsvc.CheckoutInput{
			UserID:   userID,
			Customer: payload,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:    orders.FromModel(result.Order),
			Payment:  result.Payment,
			Warnings: result.Adjustments,
		})
	}
}

// StartPayment opens (or reopens) the gateway payment for an unpaid order.
func StartPayment(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.StartPayment(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, startPaymentResponse{Payment: session})
	}
}

type checkoutResponse struct {
	Order    orders.OrderDTO             `json:"order"`
	Payment  *checkoutsvc.PaymentSession `json:"payment"`
	Warnings []stock.Adjustment          `json:"warnings,omitempty"`
}

type startPaymentResponse struct {
	Payment *checkoutsvc.PaymentSession `json:"payment"`
}
