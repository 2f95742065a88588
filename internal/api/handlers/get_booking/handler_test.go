package get_booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-FieldBookingService/internal/api/handlers"
	"github.com/m04kA/SMC-FieldBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
)

type mockService struct{ mock.Mock }

func (m *mockService) GetByID(ctx context.Context, id int64, req *models.GetBookingRequest) (*models.BookingResponse, error) {
	args := m.Called(ctx, id, req)
	if r := args.Get(0); r != nil {
		return r.(*models.BookingResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type discardLogger struct{}

func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func serve(h *Handler, target string, userID int64, role domain.Role) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/bookings/{bookingId}", h.Handle)
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != 0 {
		r = r.WithContext(middleware.WithIdentity(r.Context(), userID, role))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandle(t *testing.T) {
	svc := new(mockService)
	svc.On("GetByID", mock.Anything, int64(5), &models.GetBookingRequest{UserID: 7, Role: domain.RoleCustomer}).
		Return(&models.BookingResponse{ID: 5, UserID: 7, Status: "pending"}, nil)

	w := serve(NewHandler(svc, discardLogger{}), "/api/v1/bookings/5", 7, domain.RoleCustomer)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (handlers.ErrorResponse, map[string]interface{}) {
	t.Helper()
	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	details, _ := body.Details.(map[string]interface{})
	return body, details
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{"not found", bookings.ErrBookingNotFound, http.StatusNotFound, msgBookingNotFound},
		{"resource removed", fmt.Errorf("%w: resource_id=3", bookings.ErrResourceNotFound), http.StatusNotFound, msgResourceNotFound},
		{"foreign booking", bookings.ErrAccessDenied, http.StatusForbidden, msgForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("GetByID", mock.Anything, int64(5), mock.Anything).Return(nil, tt.err)

			w := serve(NewHandler(svc, discardLogger{}), "/api/v1/bookings/5", 7, domain.RoleCustomer)
			assert.Equal(t, tt.want, w.Code)

			body, details := decodeError(t, w)
			assert.Equal(t, tt.want, body.Code)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, float64(5), details["bookingId"])
		})
	}
}

func TestHandleAccessDeniedDetails(t *testing.T) {
	svc := new(mockService)
	svc.On("GetByID", mock.Anything, int64(5), mock.Anything).Return(nil, bookings.ErrAccessDenied)

	w := serve(NewHandler(svc, discardLogger{}), "/api/v1/bookings/5", 9, domain.RoleOwner)

	require.Equal(t, http.StatusForbidden, w.Code)
	_, details := decodeError(t, w)
	assert.Equal(t, float64(9), details["userId"])
	assert.Equal(t, string(domain.RoleOwner), details["role"])
}

func TestHandleStorageDown(t *testing.T) {
	svc := new(mockService)
	svc.On("GetByID", mock.Anything, int64(5), mock.Anything).Return(nil, fmt.Errorf("%w: boom", bookings.ErrInternal))

	w := serve(NewHandler(svc, discardLogger{}), "/api/v1/bookings/5", 7, domain.RoleCustomer)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestHandleBadInput(t *testing.T) {
	svc := new(mockService)
	h := NewHandler(svc, discardLogger{})

	for _, target := range []string{"/api/v1/bookings/x", "/api/v1/bookings/0", "/api/v1/bookings/-3"} {
		w := serve(h, target, 7, domain.RoleCustomer)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		_, details := decodeError(t, w)
		assert.NotEmpty(t, details["bookingId"], target)
	}
	assert.Equal(t, http.StatusUnauthorized, serve(h, "/api/v1/bookings/5", 0, "").Code)
	svc.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}
