package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelsplants/checkout-backend/internal/orders"
	"github.com/angelsplants/checkout-backend/pkg/db/models"
	"github.com/angelsplants/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelsplants/checkout-backend/pkg/errors"
	"github.com/angelsplants/checkout-backend/pkg/pagination"
)

type stubOrdersService struct {
	order       *models.Order
	page        pagination.Page[models.Order]
	activity    *models.OrderActivity
	err         error
	params      pagination.Params
	updateInput orders.UpdateStatusInput
	noteActor   orders.Actor
	note        string
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, input orders.UpdateStatusInput) (*models.Order, error) {
	s.updateInput = input
	return s.order, s.err
}

func (s *stubOrdersService) AddNote(_ context.Context, _ uuid.UUID, actor orders.Actor, note string) (*models.OrderActivity, error) {
	s.noteActor = actor
	s.note = note
	return s.activity, s.err
}

func (s *stubOrdersService) Get(context.Context, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrdersService) GetForUser(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrdersService) ListForUser(_ context.Context, _ uuid.UUID, params pagination.Params) (pagination.Page[models.Order], error) {
	s.params = params
	return s.page, s.err
}

func TestOrdersListPaginates(t *testing.T) {
	svc := &stubOrdersService{page: pagination.Page[models.Order]{
		Items:      []models.Order{{ID: uuid.New(), OrderNumber: "AP-1"}, {ID: uuid.New(), OrderNumber: "AP-2"}},
		NextCursor: "next",
	}}
	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=2&cursor=abc", nil), uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	OrdersList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.params.Limit != 2 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.params)
	}
	var page pagination.Page[orders.OrderDTO]
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 || page.Items[1].OrderNumber != "AP-2" || page.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestOrdersListRejectsOversizedLimit(t *testing.T) {
	req := authedRequest(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=1000", nil), uuid.New(), enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	OrdersList(&stubOrdersService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestOrderDetailHidesOtherUsersOrders(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	req := authedRequest(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New(), enums.UserRoleCustomer)
	req = withURLParams(req, map[string]string{"orderId": uuid.NewString()})
	rec := httptest.NewRecorder()
	OrderDetail(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestStaffUpdateStatusRecordsActor(t *testing.T) {
	staffID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{order: &models.Order{ID: orderID, Status: enums.OrderStatusShipped}}

	body := `{"status":"shipped","note":"  handed to courier  ","trackingNumber":"BD123","trackingUrl":"https://track.example.in/BD123"}`
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), staffID, enums.UserRoleStaff)
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	req.Header.Set("User-Agent", "staff-console")
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	StaffUpdateStatus(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	in := svc.updateInput
	if in.OrderID != orderID || in.Status != enums.OrderStatusShipped {
		t.Fatalf("unexpected update input %+v", in)
	}
	if in.Actor.UserID == nil || *in.Actor.UserID != staffID || in.Actor.Role != string(enums.UserRoleStaff) {
		t.Fatalf("unexpected actor %+v", in.Actor)
	}
	if in.Actor.IPAddress != "198.51.100.7" || in.Actor.UserAgent != "staff-console" {
		t.Fatalf("expected request metadata on actor, got %+v", in.Actor)
	}
	if in.Note != "handed to courier" || in.TrackingNumber != "BD123" {
		t.Fatalf("expected sanitized note and tracking, got %+v", in)
	}
}

func TestStaffUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubOrdersService{}
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"teleported"}`)), uuid.New(), enums.UserRoleStaff)
	req = withURLParams(req, map[string]string{"orderId": uuid.NewString()})
	rec := httptest.NewRecorder()
	StaffUpdateStatus(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestStaffUpdateStatusIllegalTransition(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move delivered order to pending")}
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"pending"}`)), uuid.New(), enums.UserRoleStaff)
	req = withURLParams(req, map[string]string{"orderId": uuid.NewString()})
	rec := httptest.NewRecorder()
	StaffUpdateStatus(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestStaffAddNoteReturnsActivity(t *testing.T) {
	orderID := uuid.New()
	note := "customer called"
	svc := &stubOrdersService{activity: &models.OrderActivity{
		ID:           uuid.New(),
		OrderID:      orderID,
		ActivityType: enums.ActivityNoteAdded,
		ActorRole:    string(enums.UserRoleStaff),
		Note:         &note,
	}}
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":"customer called"}`)), uuid.New(), enums.UserRoleStaff)
	req = withURLParams(req, map[string]string{"orderId": orderID.String()})
	rec := httptest.NewRecorder()
	StaffAddNote(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.note != "customer called" {
		t.Fatalf("unexpected note %q", svc.note)
	}
	var activity orders.ActivityDTO
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &activity); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if activity.Note == nil || *activity.Note != note {
		t.Fatalf("unexpected activity %+v", activity)
	}
}

func TestStaffAddNoteRequiresNote(t *testing.T) {
	req := authedRequest(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"note":""}`)), uuid.New(), enums.UserRoleStaff)
	req = withURLParams(req, map[string]string{"orderId": uuid.NewString()})
	rec := httptest.NewRecorder()
	StaffAddNote(&stubOrdersService{}, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
