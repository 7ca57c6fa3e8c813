package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelsplants/checkout-backend/api/responses"
	"github.com/angelsplants/checkout-backend/internal/payments"
	"github.com/angelsplants/checkout-backend/pkg/config"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

// PaymentRedirects is the reconciliation surface behind the gateway's browser redirects.
type PaymentRedirects interface {
	HandleSuccessRedirect(ctx context.Context, in payments.SuccessInput) (*payments.Result, error)
	HandleFailureRedirect(ctx context.Context, in payments.FailureInput) (*payments.Result, error)
}

// PaymentSuccess verifies the checkout handler's callback and sends the browser to the order
// confirmation page, or back to checkout when the payment could not be confirmed.
func PaymentSuccess(svc PaymentRedirects, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.HandleSuccessRedirect(r.Context(), payments.SuccessInput{
			UserID:           userID,
			GatewayOrderID:   formValue(r, "order_id", "razorpay_order_id"),
			GatewayPaymentID: formValue(r, "payment_id", "razorpay_payment_id"),
			Signature:        formValue(r, "signature", "razorpay_signature"),
		})
		if err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error_code", pkgerrors.CodeOf(err)), "payment success redirect rejected")
			}
			if wantsJSON(r) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			http.Redirect(w, r, checkoutErrorURL(cfg, redirectFailureMessage(err)), http.StatusSeeOther)
			return
		}

		target := checkoutErrorURL(cfg, result.Message)
		if result.Settled() && result.Order != nil {
			target = publicURL(cfg, fmt.Sprintf(cfg.Checkout.ConfirmationPath, result.Order.ID))
		}
		writeRedirectResult(w, r, result, target)
	}
}

// PaymentFailure records the gateway's failure callback and sends the browser to the order page
// with a customer-safe message.
func PaymentFailure(svc PaymentRedirects, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.HandleFailureRedirect(r.Context(), payments.FailureInput{
			UserID:           userID,
			GatewayOrderID:   formValue(r, "order_id", "razorpay_order_id"),
			GatewayPaymentID: formValue(r, "payment_id", "razorpay_payment_id"),
			Error: payments.GatewayError{
				Code:        formValue(r, "error[code]", "error_code"),
				Description: formValue(r, "error[description]", "error_description"),
				Source:      formValue(r, "error[source]", "error_source"),
				Step:        formValue(r, "error[step]", "error_step"),
				Reason:      formValue(r, "error[reason]", "error_reason"),
			},
		})
		if err != nil {
			if wantsJSON(r) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			http.Redirect(w, r, checkoutErrorURL(cfg, redirectFailureMessage(err)), http.StatusSeeOther)
			return
		}

		target := checkoutErrorURL(cfg, result.Message)
		switch {
		case result.Settled() && result.Order != nil:
			target = publicURL(cfg, fmt.Sprintf(cfg.Checkout.ConfirmationPath, result.Order.ID))
		case result.Order != nil:
			target = withMessage(publicURL(cfg, fmt.Sprintf(cfg.Checkout.OrderDetailPath, result.Order.ID)), result.Message)
		}
		writeRedirectResult(w, r, result, target)
	}
}

type redirectResponse struct {
	Outcome     enums.ReconcileOutcome `json:"outcome"`
	Message     string                 `json:"message,omitempty"`
	OrderID     string                 `json:"orderId,omitempty"`
	OrderNumber string                 `json:"orderNumber,omitempty"`
	RedirectURL string                 `json:"redirectUrl"`
}

// writeRedirectResult answers API clients with JSON and browsers with a 303.
func writeRedirectResult(w http.ResponseWriter, r *http.Request, result *payments.Result, target string) {
	if !wantsJSON(r) {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	body := redirectResponse{
		Outcome:     result.Outcome,
		Message:     result.Message,
		RedirectURL: target,
	}
	if result.Order != nil {
		body.OrderID = result.Order.ID.String()
		body.OrderNumber = result.Order.OrderNumber
	}
	responses.WriteSuccess(w, body)
}

func formValue(r *http.Request, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(r.FormValue(key)); v != "" {
			return v
		}
	}
	return ""
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func publicURL(cfg *config.Config, path string) string {
	return strings.TrimRight(cfg.App.PublicBaseURL, "/") + path
}

func checkoutErrorURL(cfg *config.Config, message string) string {
	return withMessage(publicURL(cfg, cfg.Checkout.CheckoutErrorPath), message)
}

func withMessage(target, message string) string {
	q := url.Values{}
	q.Set("payment", "failed")
	if message != "" {
		q.Set("message", message)
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + q.Encode()
}

func redirectFailureMessage(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature):
		return "We could not verify your payment. If you were charged, please contact support."
	case pkgerrors.IsCode(err, pkgerrors.CodeGateway):
		return "We could not reach the payment gateway. Your payment will be confirmed shortly."
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		return "We could not find your order. Please contact support if you were charged."
	default:
		return "Something went wrong while confirming your payment."
	}
}
