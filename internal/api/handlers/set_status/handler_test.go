package set_status

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m04kA/SMC-FieldBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
)

type mockService struct{ mock.Mock }

func (m *mockService) SetStatus(ctx context.Context, bookingID int64, req *models.SetStatusRequest) (*models.BookingResponse, error) {
	args := m.Called(ctx, bookingID, req)
	if r := args.Get(0); r != nil {
		return r.(*models.BookingResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type discardLogger struct{}

func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func serve(h *Handler, target, body string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/bookings/{bookingId}/status", h.Handle).Methods(http.MethodPut)
	r := httptest.NewRequest(http.MethodPut, target, strings.NewReader(body))
	r = r.WithContext(middleware.WithIdentity(r.Context(), 42, domain.RoleOwner))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandleApprove(t *testing.T) {
	svc := new(mockService)
	svc.On("SetStatus", mock.Anything, int64(5), &models.SetStatusRequest{
		UserID: 42,
		Role:   domain.RoleOwner,
		Status: "approved",
	}).Return(&models.BookingResponse{ID: 5, Status: "approved"}, nil)

	w := serve(NewHandler(svc, discardLogger{}), "/api/v1/bookings/5/status", `{"status":"approved"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"approved"`)
	svc.AssertExpectations(t)
}

func TestHandleValidation(t *testing.T) {
	h := NewHandler(new(mockService), discardLogger{})

	cases := []string{
		`{"status":"pending"}`,
		`{}`,
		`{"status":"rejected","reason":"` + strings.Repeat("x", 501) + `"}`,
		`{"status":"approved","extra":1}`,
		`not json`,
	}
	for _, body := range cases {
		assert.Equal(t, http.StatusBadRequest, serve(h, "/api/v1/bookings/5/status", body).Code, body)
	}
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		body string
	}{
		{
			name: "illegal transition",
			err:  &domain.TransitionError{From: domain.StatusComplete, To: domain.StatusApproved, Actor: domain.ActorOwner},
			want: http.StatusConflict,
			body: `"from":"complete"`,
		},
		{name: "concurrent update", err: bookings.ErrConcurrentUpdate, want: http.StatusConflict},
		{name: "reason too long", err: fmt.Errorf("%w: reason", bookings.ErrInvalidInput), want: http.StatusBadRequest},
		{name: "not owner", err: bookings.ErrAccessDenied, want: http.StatusForbidden},
		{name: "missing", err: bookings.ErrBookingNotFound, want: http.StatusNotFound},
		{name: "storage down", err: bookings.ErrInternal, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("SetStatus", mock.Anything, int64(5), mock.Anything).Return(nil, tt.err)

			w := serve(NewHandler(svc, discardLogger{}), "/api/v1/bookings/5/status", `{"status":"approved"}`)
			assert.Equal(t, tt.want, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}
