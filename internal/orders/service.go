package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelsplants/checkout-backend/internal/stock"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/outbox"
	"github.com/angelsplants/checkout-backend/pkg/outbox/payloads"
	"github.com/angelsplants/checkout-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryReleaser returns stock held by a cancelled order.
type InventoryReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, lines []stock.Line) error
}

// Service defines order reads and the manual staff transitions.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	AddNote(ctx context.Context, orderID uuid.UUID, actor Actor, note string) (*models.OrderActivity, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error)
	ListActivities(ctx context.Context, orderID uuid.UUID) ([]models.OrderActivity, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	outbox    outboxPublisher
	inventory InventoryReleaser
	logg      *logger.Logger
}

func NewService(repo *Repository, tx txRunner, publisher outboxPublisher, inventory InventoryReleaser, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory releaser required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, inventory: inventory, logg: logg}, nil
}

// staffTransitions lists the manual moves staff may make from each status.
var staffTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:       {enums.OrderStatusCancelled},
	enums.OrderStatusPaymentFailed: {enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:    {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusShipped:       {enums.OrderStatusDelivered, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:     {enums.OrderStatusRefunded},
}

// CanTransition reports whether staff may move an order from one status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range staffTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type UpdateStatusInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	Actor          Actor
	Note           string
	TrackingNumber string
	TrackingURL    string
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", input.Status))
	}
	note := strings.TrimSpace(input.Note)
	trackingNumber := strings.TrimSpace(input.TrackingNumber)
	trackingURL := strings.TrimSpace(input.TrackingURL)

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		from := order.Status
		statusChanged := from != input.Status
		trackingChanged := (trackingNumber != "" && (order.TrackingNumber == nil || *order.TrackingNumber != trackingNumber)) ||
			(trackingURL != "" && (order.TrackingURL == nil || *order.TrackingURL != trackingURL))

		if statusChanged && !CanTransition(from, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, input.Status)).
				WithDetails(map[string]any{"from": from, "to": input.Status})
		}
		if !statusChanged && !trackingChanged {
			updated = order
			return nil
		}

		columns := map[string]any{}
		if statusChanged {
			columns["status"] = input.Status
		}
		if trackingNumber != "" {
			columns["tracking_number"] = trackingNumber
		}
		if trackingURL != "" {
			columns["tracking_url"] = trackingURL
		}
		if err := repo.Update(ctx, order.ID, columns); err != nil {
			return err
		}

		if statusChanged && input.Status == enums.OrderStatusCancelled {
			if err := s.releaseStock(ctx, tx, order.ID); err != nil {
				return err
			}
		}

		if statusChanged {
			activity := NewActivity(order.ID, enums.ActivityStatusChange, input.Actor, WithStatusChange(from, input.Status), WithNote(note))
			if err := repo.AppendActivity(ctx, activity); err != nil {
				return err
			}
		}
		if trackingChanged {
			activity := NewActivity(order.ID, enums.ActivityTrackingUpdated, input.Actor, WithDetails(map[string]any{
				"tracking_number": trackingNumber,
				"tracking_url":    trackingURL,
			}))
			if !statusChanged {
				WithNote(note)(activity)
			}
			if err := repo.AppendActivity(ctx, activity); err != nil {
				return err
			}
		}

		if statusChanged {
			err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         input.Actor.Ref(),
				Data: payloads.OrderStatusChangedEvent{
					OrderID:        order.ID,
					OrderNumber:    order.OrderNumber,
					Email:          order.Email,
					OldStatus:      from,
					NewStatus:      input.Status,
					TrackingNumber: trackingNumber,
					TrackingURL:    trackingURL,
					Note:           note,
				},
			})
			if err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, mapOrderError(err, "update order status")
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, updated.ID.String(), "")
		logCtx = s.logg.WithField(logCtx, "status", updated.Status)
		s.logg.Info(logCtx, "order status updated by staff")
	}
	return updated, nil
}

func (s *service) releaseStock(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	var items []models.OrderItem
	if err := tx.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	return s.inventory.Release(ctx, tx, ReleaseLines(items))
}

// ReleaseLines maps order items to the stock lines returned on cancellation.
func ReleaseLines(items []models.OrderItem) []stock.Line {
	lines := make([]stock.Line, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		lines = append(lines, stock.Line{ProductID: *item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

func (s *service) AddNote(ctx context.Context, orderID uuid.UUID, actor Actor, note string) (*models.OrderActivity, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note is required")
	}
	var activity *models.OrderActivity
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		activity = NewActivity(order.ID, enums.ActivityNoteAdded, actor, WithNote(note))
		return repo.AppendActivity(ctx, activity)
	})
	if err != nil {
		return nil, mapOrderError(err, "add order note")
	}
	return activity, nil
}

// Get returns the full staff view of an order.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, "load order")
	}
	return order, nil
}

// GetForUser hides orders owned by someone else behind NOT_FOUND.
func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, "load order")
	}
	if !order.OwnedBy(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error) {
	page, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return page, mapOrderError(err, "list orders")
	}
	return page, nil
}

func (s *service) ListActivities(ctx context.Context, orderID uuid.UUID) ([]models.OrderActivity, error) {
	rows, err := s.repo.ListActivities(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order activities")
	}
	return rows, nil
}

func mapOrderError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
