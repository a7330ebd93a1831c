package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workshops/internal/payment"
	"workshops/internal/registration"
	"workshops/internal/workshop"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) PatchWorkshop(ctx context.Context, id int64, raw map[string]json.RawMessage) (*workshop.Workshop, error) {
	args := m.Called(ctx, id, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.Workshop), args.Error(1)
}

func (m *MockGateway) DeleteWorkshop(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGateway) ListRegistrations(ctx context.Context, filter registration.ListFilter) ([]registration.WithWorkshop, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registration.WithWorkshop), args.Error(1)
}

func (m *MockGateway) ExportRegistrations(ctx context.Context, w io.Writer, filter registration.ListFilter) error {
	args := m.Called(ctx, w, filter)
	_, _ = io.WriteString(w, "registration_id\n")
	return args.Error(0)
}

func (m *MockGateway) PatchRegistration(ctx context.Context, id int64, raw map[string]json.RawMessage) (*PatchResult, error) {
	args := m.Called(ctx, id, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PatchResult), args.Error(1)
}

func (m *MockGateway) DeleteRegistration(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGateway) ListPayments(ctx context.Context, registrationID int64) ([]payment.Payment, error) {
	args := m.Called(ctx, registrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}

func (m *MockGateway) AddPayment(ctx context.Context, registrationID int64, req payment.AddPaymentRequest) (*payment.Result, error) {
	args := m.Called(ctx, registrationID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func (m *MockGateway) DeletePayment(ctx context.Context, registrationID, paymentID int64) (*payment.Result, error) {
	args := m.Called(ctx, registrationID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func newAdminRouter(gw Gateway) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(gw)
	h.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }

	r := gin.New()
	g := r.Group("/api/admin")
	g.PATCH("/workshops/:id", h.PatchWorkshop)
	g.DELETE("/workshops/:id", h.DeleteWorkshop)
	g.GET("/registrations", h.ListRegistrations)
	g.GET("/registrations/export", h.ExportRegistrations)
	g.PATCH("/registrations/:id", h.PatchRegistration)
	g.DELETE("/registrations/:id", h.DeleteRegistration)
	g.GET("/registrations/:id/payments", h.ListPayments)
	g.POST("/registrations/:id/payments", h.AddPayment)
	g.DELETE("/registrations/:id/payments/:paymentId", h.DeletePayment)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_PatchRegistration(t *testing.T) {
	gw := new(MockGateway)
	gw.On("PatchRegistration", mock.Anything, int64(5), mock.MatchedBy(func(raw map[string]json.RawMessage) bool {
		return string(raw["seats"]) == "1"
	})).Return(&PatchResult{Totals: registration.Totals{AmountPaid: 200, Paid: true}}, nil)

	w := do(newAdminRouter(gw), http.MethodPatch, "/api/admin/registrations/5", `{"seats":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"paid":true`)
	gw.AssertExpectations(t)
}

func TestHandler_PatchRegistration_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		err  error
		code int
	}{
		{"bad id", "/api/admin/registrations/abc", `{"seats":1}`, nil, http.StatusBadRequest},
		{"not json", "/api/admin/registrations/5", `seats=1`, nil, http.StatusBadRequest},
		{"json array", "/api/admin/registrations/5", `[1]`, nil, http.StatusBadRequest},
		{"validation", "/api/admin/registrations/5", `{"seats":0}`, invalid("seats", "must be a positive integer"), http.StatusBadRequest},
		{"missing", "/api/admin/registrations/5", `{"seats":1}`, ErrNotFound, http.StatusNotFound},
		{"storage", "/api/admin/registrations/5", `{"seats":1}`, assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			if tt.err != nil {
				gw.On("PatchRegistration", mock.Anything, int64(5), mock.Anything).Return(nil, tt.err)
			}

			w := do(newAdminRouter(gw), http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestHandler_ListRegistrations_Filters(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListRegistrations", mock.Anything, mock.MatchedBy(func(f registration.ListFilter) bool {
		return f.WorkshopID != nil && *f.WorkshopID == 3 &&
			f.Status != nil && *f.Status == registration.StatusPending &&
			f.Paid != nil && !*f.Paid &&
			f.From != nil && f.From.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) &&
			f.To != nil && f.To.Equal(time.Date(2026, 10, 31, 23, 59, 59, 999999000, time.UTC))
	})).Return([]registration.WithWorkshop{}, nil)

	w := do(newAdminRouter(gw), http.MethodGet,
		"/api/admin/registrations?workshop_id=3&status=pending&paid=false&from=2026-10-01&to=2026-10-31", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
	gw.AssertExpectations(t)
}

func TestHandler_ListRegistrations_BadFilters(t *testing.T) {
	r := newAdminRouter(new(MockGateway))

	for _, q := range []string{"workshop_id=x", "status=paid", "paid=maybe", "from=01/10/2026", "to=yesterday"} {
		w := do(r, http.MethodGet, "/api/admin/registrations?"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestHandler_ExportRegistrations(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ExportRegistrations", mock.Anything, mock.Anything, registration.ListFilter{}).Return(nil)

	w := do(newAdminRouter(gw), http.MethodGet, "/api/admin/registrations/export", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="registrations_2026-10-17.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "registration_id\n", w.Body.String())
}

func TestHandler_AddPayment(t *testing.T) {
	gw := new(MockGateway)
	gw.On("AddPayment", mock.Anything, int64(5), payment.AddPaymentRequest{Amount: 100, Method: "cash"}).
		Return(&payment.Result{Totals: registration.Totals{AmountPaid: 100}}, nil)
	r := newAdminRouter(gw)

	w := do(r, http.MethodPost, "/api/admin/registrations/5/payments", `{"amount":100,"method":"cash"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/admin/registrations/5/payments", `{"amount":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	gw.AssertNumberOfCalls(t, "AddPayment", 1)
}

func TestHandler_DeletePayment(t *testing.T) {
	gw := new(MockGateway)
	gw.On("DeletePayment", mock.Anything, int64(5), int64(9)).Return(nil, ErrNotFound)
	r := newAdminRouter(gw)

	w := do(r, http.MethodDelete, "/api/admin/registrations/5/payments/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/admin/registrations/5/payments/0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Deletes(t *testing.T) {
	gw := new(MockGateway)
	gw.On("DeleteWorkshop", mock.Anything, int64(3)).Return(nil)
	gw.On("DeleteRegistration", mock.Anything, int64(4)).Return(ErrNotFound)
	r := newAdminRouter(gw)

	w := do(r, http.MethodDelete, "/api/admin/workshops/3", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(r, http.MethodDelete, "/api/admin/registrations/4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_PatchWorkshop(t *testing.T) {
	gw := new(MockGateway)
	gw.On("PatchWorkshop", mock.Anything, int64(3), mock.Anything).Return(&workshop.Workshop{ID: 3, Title: "New"}, nil)

	w := do(newAdminRouter(gw), http.MethodPatch, "/api/admin/workshops/3", `{"title":"New"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"New"`)
}

func TestHandler_ListPayments(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListPayments", mock.Anything, int64(5)).Return([]payment.Payment{{ID: 1, Amount: 50}}, nil)

	w := do(newAdminRouter(gw), http.MethodGet, "/api/admin/registrations/5/payments", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":50`)
}
