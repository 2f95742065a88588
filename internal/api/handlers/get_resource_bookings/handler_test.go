package get_resource_bookings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-FieldBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
)

var loc = time.FixedZone("ICT", 7*60*60)

type mockService struct{ mock.Mock }

func (m *mockService) GetResourceBookings(ctx context.Context, req *models.GetResourceBookingsRequest) (*models.BookingListResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*models.BookingListResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type discardLogger struct{}

func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/resources/{resourceId}/bookings", h.Handle)
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r = r.WithContext(middleware.WithIdentity(r.Context(), 42, domain.RoleOwner))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestToServiceRequest(t *testing.T) {
	req, err := ToServiceRequest(3, 42, domain.RoleOwner, "pending", "2025-06-02", "true", loc)
	require.NoError(t, err)

	assert.Equal(t, int64(3), req.ResourceID)
	require.NotNil(t, req.Status)
	assert.Equal(t, "pending", *req.Status)
	require.NotNil(t, req.Date)
	assert.True(t, req.Date.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, loc)))
	assert.True(t, req.IncludeRejected)

	empty, err := ToServiceRequest(3, 42, domain.RoleOwner, "", "", "", loc)
	require.NoError(t, err)
	assert.Nil(t, empty.Status)
	assert.Nil(t, empty.Date)
	assert.False(t, empty.IncludeRejected)

	_, err = ToServiceRequest(3, 42, domain.RoleOwner, "", "2025/06/02", "", loc)
	assert.Error(t, err)
	_, err = ToServiceRequest(3, 42, domain.RoleOwner, "", "", "maybe", loc)
	assert.Error(t, err)
}

func TestHandle(t *testing.T) {
	svc := new(mockService)
	svc.On("GetResourceBookings", mock.Anything, mock.MatchedBy(func(req *models.GetResourceBookingsRequest) bool {
		return req.ResourceID == 3 && req.UserID == 42 && req.Role == domain.RoleOwner && req.Date != nil
	})).Return(&models.BookingListResponse{Bookings: []models.BookingResponse{{ID: 9}}}, nil)

	w := serve(NewHandler(svc, loc, discardLogger{}), "/api/v1/resources/3/bookings?date=2025-06-02")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":9`)
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not the owner", bookings.ErrAccessDenied, http.StatusForbidden},
		{"unknown resource", bookings.ErrResourceNotFound, http.StatusNotFound},
		{"bad status", bookings.ErrInvalidInput, http.StatusBadRequest},
		{"storage down", bookings.ErrInternal, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("GetResourceBookings", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := serve(NewHandler(svc, loc, discardLogger{}), "/api/v1/resources/3/bookings")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestHandleInvalidQuery(t *testing.T) {
	h := NewHandler(new(mockService), loc, discardLogger{})

	assert.Equal(t, http.StatusBadRequest, serve(h, "/api/v1/resources/3/bookings?date=tomorrow").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, "/api/v1/resources/x/bookings").Code)
}
