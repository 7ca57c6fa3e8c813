package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/metrics"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/outbox/payloads"
)

const (
	orderExpiryJobName      = "order-expiry"
	defaultPendingOrderTTL  = 2 * time.Hour
	defaultExpiryBatchSize  = 100
	maxExpiryBatchesPerTick = 20
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    *orders.Repository
	Inventory orders.InventoryReleaser
	Outbox    outboxEmitter
	Metrics   *metrics.CronJobMetrics
	TTL       time.Duration
	BatchSize int
}

// NewOrderExpiryJob builds the job that cancels orders left unpaid past the TTL and
// returns their stock.
func NewOrderExpiryJob(params OrderExpiryJobParams) (*OrderExpiryJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &OrderExpiryJob{
		logg:      params.Logger,
		db:        params.DB,
		orders:    params.Orders,
		inventory: params.Inventory,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		ttl:       ttl,
		batch:     batch,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type OrderExpiryJob struct {
	logg      *logger.Logger
	db        txRunner
	orders    *orders.Repository
	inventory orders.InventoryReleaser
	outbox    outboxEmitter
	metrics   *metrics.CronJobMetrics
	ttl       time.Duration
	batch     int
	now       func() time.Time
}

func (j *OrderExpiryJob) Name() string { return orderExpiryJobName }

// Run expires stale orders batch by batch. A failing order does not stop the others; all
// failures come back combined.
func (j *OrderExpiryJob) Run(ctx context.Context) error {
	now := j.now()
	cutoff := now.Add(-j.ttl)
	var (
		errs    error
		expired int
		skipped int
	)
	for round := 0; round < maxExpiryBatchesPerTick; round++ {
		ids, err := j.orders.ListStaleUnpaid(ctx, cutoff, j.batch)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("list stale orders: %w", err))
			break
		}
		var batchErr error
		for _, id := range ids {
			done, err := j.expire(ctx, id, now)
			switch {
			case err != nil:
				batchErr = multierr.Append(batchErr, fmt.Errorf("expire order %s: %w", id, err))
			case done:
				expired++
			default:
				skipped++
			}
		}
		errs = multierr.Append(errs, batchErr)
		// failed rows would be listed again, so stop after a batch with errors
		if batchErr != nil || len(ids) < j.batch {
			break
		}
	}

	j.metrics.AddItems(j.Name(), expired)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
		"skipped": skipped,
		"failed":  len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "pending order expiry complete")
	return errs
}

// expire cancels one order under its row lock. It reports false when the order was paid or
// moved on since it was listed.
func (j *OrderExpiryJob) expire(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	var done bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Paid || !order.Status.AwaitingPayment() {
			return nil
		}

		var items []models.OrderItem
		if err := tx.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		if err := j.inventory.Release(ctx, tx, orders.ReleaseLines(items)); err != nil {
			return err
		}
		if err := repo.Update(ctx, orderID, map[string]any{"status": enums.OrderStatusCancelled}); err != nil {
			return err
		}

		actor := orders.SystemActor()
		activity := orders.NewActivity(orderID, enums.ActivityStatusChange, actor,
			orders.WithStatusChange(order.Status, enums.OrderStatusCancelled),
			orders.WithNote(fmt.Sprintf("Order expired: payment not received within %s", j.ttl)),
		)
		if err := repo.AppendActivity(ctx, activity); err != nil {
			return err
		}

		done = true
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actor.Ref(),
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:     orderID,
				OrderNumber: order.OrderNumber,
				Email:       order.Email,
				PriorStatus: order.Status,
				ExpiredAt:   now,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return done, nil
}
