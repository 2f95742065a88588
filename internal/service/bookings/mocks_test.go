package bookings

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) GetFacilityAllocations(ctx context.Context, bookingID int64) ([]domain.FacilityAllocation, error) {
	args := m.Called(ctx, bookingID)
	if a := args.Get(0); a != nil {
		return a.([]domain.FacilityAllocation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	args := m.Called(ctx, userID, status)
	if b := args.Get(0); b != nil {
		return b.([]*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) GetByResourceWithFilter(ctx context.Context, filter domain.ResourceBookingsFilter) ([]*domain.Booking, error) {
	args := m.Called(ctx, filter)
	if b := args.Get(0); b != nil {
		return b.([]*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id int64, from, to domain.BookingStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockBookingRepo) MarkApproved(ctx context.Context, id int64, from domain.BookingStatus, approvedAt time.Time) error {
	return m.Called(ctx, id, from, approvedAt).Error(0)
}

func (m *mockBookingRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockBookingRepo) DeleteFacilityAllocations(ctx context.Context, bookingIDs ...int64) (int64, error) {
	args := m.Called(ctx, bookingIDs)
	return args.Get(0).(int64), args.Error(1)
}

type mockResourceRepo struct {
	mock.Mock
}

func (m *mockResourceRepo) GetResource(ctx context.Context, resourceID int64) (*domain.Resource, error) {
	args := m.Called(ctx, resourceID)
	if r := args.Get(0); r != nil {
		return r.(*domain.Resource), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) DeleteByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	args := m.Called(ctx, bookingID)
	if p := args.Get(0); p != nil {
		return p.(*domain.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockFileStorage struct {
	mock.Mock
}

func (m *mockFileStorage) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotifier) Broadcast(ctx context.Context, topic domain.EventTopic, payload interface{}) error {
	return m.Called(ctx, topic, payload).Error(0)
}

type mockMetrics struct {
	mock.Mock
}

func (m *mockMetrics) RecordTransition(from, to, actor string) {
	m.Called(from, to, actor)
}

// passthroughTx выполняет fn без транзакции
type passthroughTx struct{}

func (passthroughTx) DoReadCommitted(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time {
	return f.now
}

type discardLogger struct{}

func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}
