package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/outbox/idempotency"
	"github.com/angelsplants/checkout-backend/pkg/outbox/payloads"
)

const orderEmailConsumer = "order-emails"

type orderLoader interface {
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns order events into customer emails.
type Consumer struct {
	orders       orderLoader
	mailer       Mailer
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	store        string
	logg         *logger.Logger
}

type ConsumerDeps struct {
	Orders       orderLoader
	Mailer       Mailer
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Manager
	StoreName    string
	Logger       *logger.Logger
}

func NewConsumer(deps ConsumerDeps) (*Consumer, error) {
	if deps.Orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if deps.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if deps.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       deps.Orders,
		mailer:       deps.Mailer,
		subscription: deps.Subscription,
		idempotency:  deps.Idempotency,
		store:        deps.StoreName,
		logg:         deps.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
	sent bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderPaid, enums.EventPaymentFailed, enums.EventOrderStatusChanged, enums.EventOrderExpired:
	default:
		c.logg.Info(logCtx, "skipping event without customer email")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderEmailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	email, err := c.compose(ctx, enums.OutboxEventType(eventType), envelope.Data)
	if errors.Is(err, errSkip) {
		c.logg.Info(logCtx, "no email for event")
		return processResult{ack: true}
	}
	if err == nil {
		err = c.mailer.Send(ctx, *email)
	}
	if err != nil {
		c.logg.Error(logCtx, "order email failed", err)
		_ = c.idempotency.Delete(ctx, orderEmailConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithField(logCtx, "subject", email.Subject), "order email sent")
	return processResult{ack: true, sent: true}
}

var errSkip = errors.New("nothing to send")

func (c *Consumer) compose(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) (*Email, error) {
	switch eventType {
	case enums.EventOrderPaid:
		var payload payloads.OrderPaidEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode order_paid: %w", err)
		}
		order, err := c.load(ctx, payload.OrderID)
		if err != nil {
			return nil, err
		}
		return c.email(order, fmt.Sprintf("Order %s confirmed", order.OrderNumber), "order_paid", view{PaymentID: payload.GatewayPaymentID})

	case enums.EventPaymentFailed:
		var payload payloads.PaymentFailedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode payment_failed: %w", err)
		}
		order, err := c.load(ctx, payload.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Paid {
			return nil, errSkip
		}
		return c.email(order, fmt.Sprintf("Payment for order %s was not completed", order.OrderNumber), "payment_failed", view{Message: payload.Message})

	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode order_status_changed: %w", err)
		}
		order, err := c.load(ctx, payload.OrderID)
		if err != nil {
			return nil, err
		}
		return c.email(order, fmt.Sprintf("Order %s is %s", order.OrderNumber, statusLabel(payload.NewStatus)), "order_status_changed", view{
			Status:         payload.NewStatus,
			TrackingNumber: payload.TrackingNumber,
			TrackingURL:    payload.TrackingURL,
			Note:           payload.Note,
		})

	case enums.EventOrderExpired:
		var payload payloads.OrderExpiredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode order_expired: %w", err)
		}
		order, err := c.load(ctx, payload.OrderID)
		if err != nil {
			return nil, err
		}
		return c.email(order, fmt.Sprintf("Order %s was cancelled", order.OrderNumber), "order_expired", view{})
	}
	return nil, errSkip
}

func (c *Consumer) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := c.orders.FindDetail(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errSkip
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return order, nil
}

func (c *Consumer) email(order *models.Order, subject, template string, v view) (*Email, error) {
	if order.Email == "" {
		return nil, errSkip
	}
	v.Store = c.store
	v.Order = order
	body, err := render(template, v)
	if err != nil {
		return nil, err
	}
	return &Email{To: order.Email, Subject: subject, Body: body}, nil
}
