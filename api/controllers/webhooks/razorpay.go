package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelsplants/checkout-backend/api/responses"
	"github.com/angelsplants/checkout-backend/internal/payments"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	maxWebhookBody  = 1 << 20
)

type RazorpayWebhookService interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*payments.Result, error)
}

type razorpayWebhookGuard interface {
	Claim(ctx context.Context, rawBody []byte) (string, bool, error)
	Release(ctx context.Context, digest string) error
}

type webhookResponse struct {
	Status string `json:"status"`
}

// RazorpayWebhook reconciles payment events pushed by the gateway. Repeated deliveries of the
// same body are acknowledged without being processed again.
func RazorpayWebhook(svc RazorpayWebhookService, guard razorpayWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		if len(payload) > maxWebhookBody {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook body too large"))
			return
		}
		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "razorpay signature missing"))
			return
		}

		digest, fresh, err := guard.Claim(ctx, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook delivery"))
			return
		}
		if !fresh {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "webhook_digest", digest), "duplicate webhook delivery")
			}
			responses.WriteSuccess(w, webhookResponse{Status: "duplicate"})
			return
		}

		result, err := svc.HandleWebhook(ctx, payload, signature)
		if err != nil {
			if releaseErr := guard.Release(ctx, digest); releaseErr != nil && logg != nil {
				logg.Error(ctx, "release webhook digest", releaseErr)
			}
			// 503 makes Razorpay redeliver once the gateway is reachable again.
			if pkgerrors.IsCode(err, pkgerrors.CodeGateway) {
				err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, webhookResponse{Status: result.Outcome.String()})
	}
}
