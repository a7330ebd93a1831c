package workshop

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*Workshop, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Workshop), args.Error(1)
}

func (m *MockService) ListPublic(ctx context.Context) ([]WithStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WithStats), args.Error(1)
}

func (m *MockService) ListAll(ctx context.Context) ([]WithStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]WithStats), args.Error(1)
}

func (m *MockService) GetByToken(ctx context.Context, token string) (*WithStats, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WithStats), args.Error(1)
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.GET("/api/workshops", h.ListPublic)
	r.GET("/api/workshops/by-token/:token", h.GetByToken)
	r.POST("/api/admin/workshops", h.Create)
	return r
}

func TestHandler_GetByToken(t *testing.T) {
	svc := new(MockService)
	svc.On("GetByToken", mock.Anything, "abc").Return(&WithStats{Workshop: Workshop{ID: 7, Title: "Clay"}, SeatsLeft: 2}, nil)
	svc.On("GetByToken", mock.Anything, "missing").Return(nil, ErrNotFound)
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/workshops/by-token/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"seats_left":2`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/workshops/by-token/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Create_Validation(t *testing.T) {
	r := setupRouter(new(MockService))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/workshops", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
}

func TestHandler_Create(t *testing.T) {
	svc := new(MockService)
	svc.On("CreateWorkshop", mock.Anything, mock.AnythingOfType("workshop.CreateWorkshopRequest")).
		Return(&Workshop{ID: 3, Title: "Glass"}, nil)
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	body := `{"title":"Glass","event_at":"2026-12-01T18:00:00Z","capacity":8,"price":250}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/workshops", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":3`)
	svc.AssertExpectations(t)
}
