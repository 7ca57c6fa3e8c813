package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/api/middleware"
	"github.com/angelsplants/checkout-backend/api/responses"
	"github.com/angelsplants/checkout-backend/api/validators"
	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/logger"
	"github.com/angelsplants/checkout-backend/pkg/pagination"
)

const maxStaffNoteLength = 2000

// OrdersService is the order read and staff action surface.
type OrdersService interface {
	UpdateStatus(ctx context.Context, input orders.UpdateStatusInput) (*models.Order, error)
	AddNote(ctx context.Context, orderID uuid.UUID, actor orders.Actor, note string) (*models.OrderActivity, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error)
}

// OrdersList returns the caller's orders, newest first.
func OrdersList(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForUser(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := pagination.Page[orders.OrderDTO]{
			Items:      make([]orders.OrderDTO, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Items {
			out.Items = append(out.Items, orders.FromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail returns one of the caller's orders. Orders owned by someone else are reported as
// not found.
func OrderDetail(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		order, err := svc.GetForUser(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}

// StaffOrderDetail returns the order with its payments and audit trail.
func StaffOrderDetail(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.StaffFromModel(order))
	}
}

// StaffUpdateStatus applies a manual status transition and records who made it.
func StaffUpdateStatus(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orders.UpdateStatusInput{
			OrderID:        orderID,
			Status:         status,
			Actor:          actor,
			Note:           validators.SanitizeString(payload.Note, maxStaffNoteLength),
			TrackingNumber: validators.SanitizeString(payload.TrackingNumber, 100),
			TrackingURL:    validators.SanitizeString(payload.TrackingURL, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}

// StaffAddNote appends a free-text note to the order's activity log.
func StaffAddNote(svc OrdersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := uuidParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addNoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activity, err := svc.AddNote(r.Context(), orderID, actor, validators.SanitizeString(payload.Note, maxStaffNoteLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithOrderID(r.Context(), orderID.String(), "")
			logg.Info(logg.WithActorRole(ctx, middleware.RoleFromContext(r.Context())), "staff note added")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.ActivitiesFromModels([]models.OrderActivity{*activity})[0])
	}
}

type updateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	Note           string `json:"note" validate:"max=2000"`
	TrackingNumber string `json:"trackingNumber" validate:"max=100"`
	TrackingURL    string `json:"trackingUrl" validate:"omitempty,url,max=500"`
}

type addNoteRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}
