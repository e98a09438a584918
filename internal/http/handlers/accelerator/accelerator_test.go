package accelerator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, a models.Accelerator) (*models.Accelerator, error) {
	args := m.Called(ctx, a)
	res, _ := args.Get(0).(*models.Accelerator)
	return res, args.Error(1)
}

func (m *ServiceMock) Get(ctx context.Context, id int64) (*models.Accelerator, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.Accelerator)
	return res, args.Error(1)
}

func (m *ServiceMock) Search(ctx context.Context, filter models.AcceleratorFilter) ([]*models.Accelerator, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).([]*models.Accelerator)
	return res, args.Error(1)
}

func (m *ServiceMock) Update(ctx context.Context, id int64, patch models.AcceleratorPatch) (*models.Accelerator, error) {
	args := m.Called(ctx, id, patch)
	res, _ := args.Get(0).(*models.Accelerator)
	return res, args.Error(1)
}

func (m *ServiceMock) ToggleStatus(ctx context.Context, id int64) (*models.Accelerator, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.Accelerator)
	return res, args.Error(1)
}

func (m *ServiceMock) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newRouter(svc Service) http.Handler {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Get("/accelerators", h.List)
	r.Post("/accelerators", h.Create)
	r.Get("/accelerators/{id}", h.Get)
	r.Patch("/accelerators/{id}", h.Update)
	r.Delete("/accelerators/{id}", h.Delete)
	r.Post("/accelerators/{id}/toggle-status", h.ToggleStatus)
	return r
}

func TestHandler(t *testing.T) {
	msu := &models.Accelerator{ID: 1, University: "MSU", IsActive: true}

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		setupMocks func(m *ServiceMock)
		wantCode   int
		wantBody   string
	}{
		{
			name:   "create defaults to active",
			method: http.MethodPost, target: "/accelerators", body: `{"university":"MSU"}`,
			setupMocks: func(m *ServiceMock) {
				m.On("Create", mock.Anything, models.Accelerator{University: "MSU", IsActive: true}).Return(msu, nil)
			},
			wantCode: http.StatusCreated,
		},
		{
			name:   "create duplicate university",
			method: http.MethodPost, target: "/accelerators", body: `{"university":"msu","is_active":false}`,
			setupMocks: func(m *ServiceMock) {
				m.On("Create", mock.Anything, models.Accelerator{University: "msu"}).
					Return(nil, fmt.Errorf("accelerator.Create: %w", models.ErrAcceleratorExists))
			},
			wantCode: http.StatusConflict,
		},
		{
			name:   "create without university",
			method: http.MethodPost, target: "/accelerators", body: `{}`,
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:   "search with filters",
			method: http.MethodGet, target: "/accelerators?search=ms&active_only=true&skip=10&limit=5",
			setupMocks: func(m *ServiceMock) {
				m.On("Search", mock.Anything, models.AcceleratorFilter{Search: "ms", ActiveOnly: true, Skip: 10, Limit: 5}).
					Return([]*models.Accelerator{msu}, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `"university":"MSU"`,
		},
		{
			name:   "empty search returns empty list",
			method: http.MethodGet, target: "/accelerators",
			setupMocks: func(m *ServiceMock) {
				m.On("Search", mock.Anything, models.AcceleratorFilter{}).Return(nil, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `"data":[]`,
		},
		{
			name:   "bad skip",
			method: http.MethodGet, target: "/accelerators?skip=-3",
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "get missing",
			method: http.MethodGet, target: "/accelerators/9",
			setupMocks: func(m *ServiceMock) {
				m.On("Get", mock.Anything, int64(9)).Return(nil, models.ErrNotFound)
			},
			wantCode: http.StatusNotFound,
		},
		{
			name:   "get bad id",
			method: http.MethodGet, target: "/accelerators/abc",
			wantCode: http.StatusBadRequest,
		},
		{
			name:   "partial update",
			method: http.MethodPatch, target: "/accelerators/1", body: `{"description":null}`,
			setupMocks: func(m *ServiceMock) {
				m.On("Update", mock.Anything, int64(1), models.AcceleratorPatch{Description: models.Null[string]()}).Return(msu, nil)
			},
			wantCode: http.StatusOK,
		},
		{
			name:   "toggle",
			method: http.MethodPost, target: "/accelerators/1/toggle-status",
			setupMocks: func(m *ServiceMock) {
				m.On("ToggleStatus", mock.Anything, int64(1)).Return(&models.Accelerator{ID: 1, University: "MSU"}, nil)
			},
			wantCode: http.StatusOK,
			wantBody: `"is_active":false`,
		},
		{
			name:   "delete",
			method: http.MethodDelete, target: "/accelerators/1",
			setupMocks: func(m *ServiceMock) {
				m.On("Delete", mock.Anything, int64(1)).Return(nil)
			},
			wantCode: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.setupMocks != nil {
				tt.setupMocks(svc)
			}
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}
