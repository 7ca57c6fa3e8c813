package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/api/middleware"
	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
)

func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

// requestActor builds the audit actor for the authenticated caller.
func requestActor(r *http.Request) (orders.Actor, error) {
	userID, err := currentUserID(r)
	if err != nil {
		return orders.Actor{}, err
	}
	actor := orders.UserActor(userID, enums.UserRole(middleware.RoleFromContext(r.Context())))
	actor.IPAddress = middleware.ClientIP(r)
	actor.UserAgent = r.UserAgent()
	return actor, nil
}
