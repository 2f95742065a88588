package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/booking"
	"github.com/m04kA/SMC-FieldBookingService/internal/service/bookings/models"
	"github.com/m04kA/SMC-FieldBookingService/pkg/ptr"
)

var ict = time.FixedZone("ICT", 7*3600)

const (
	customerID = int64(7)
	ownerID    = int64(50)
	strangerID = int64(99)
	bookingID  = int64(10)
)

type fixture struct {
	bookings  *mockBookingRepo
	resources *mockResourceRepo
	payments  *mockPaymentRepo
	files     *mockFileStorage
	notifier  *mockNotifier
	metrics   *mockMetrics
	field     *domain.Field
	resource  *domain.Resource
	start     time.Time
}

func newFixture() *fixture {
	field := &domain.Field{ID: 1, OwnerID: ownerID, Name: "Arena", CancelHours: ptr.Ptr(2), PriceDeposit: 200}
	return &fixture{
		bookings:  new(mockBookingRepo),
		resources: new(mockResourceRepo),
		payments:  new(mockPaymentRepo),
		files:     new(mockFileStorage),
		notifier:  new(mockNotifier),
		metrics:   new(mockMetrics),
		field:     field,
		resource:  &domain.Resource{ID: 3, FieldID: 1, Name: "Pitch A", Field: field},
		start:     time.Date(2025, 6, 1, 18, 0, 0, 0, ict),
	}
}

func (f *fixture) service(now time.Time) *Service {
	return NewService(f.bookings, f.resources, f.payments, f.files, f.notifier, f.metrics, passthroughTx{}, ict, discardLogger{}).
		WithTimeProvider(fixedTime{now: now})
}

func (f *fixture) booking(status domain.BookingStatus) *domain.Booking {
	b := &domain.Booking{
		ID:          bookingID,
		UserID:      customerID,
		ResourceID:  3,
		FieldID:     1,
		BookingDate: time.Date(2025, 6, 1, 0, 0, 0, 0, ict),
		StartAt:     f.start,
		EndAt:       f.start.Add(time.Hour),
		Status:      status,
	}
	f.bookings.On("GetByID", mock.Anything, bookingID).Return(b, nil)
	f.resources.On("GetResource", mock.Anything, int64(3)).Return(f.resource, nil)
	return b
}

func (f *fixture) expectCleanup(payment *domain.Payment) {
	f.bookings.On("DeleteFacilityAllocations", mock.Anything, []int64{bookingID}).Return(int64(1), nil).Once()
	f.payments.On("DeleteByBookingID", mock.Anything, bookingID).Return(payment, nil).Once()
}

func TestSetStatusApproveStampsDepositAnchor(t *testing.T) {
	f := newFixture()
	now := f.start.Add(-5 * time.Hour)
	f.booking(domain.StatusPending)

	f.bookings.On("MarkApproved", mock.Anything, bookingID, domain.StatusPending, now).Return(nil).Once()
	f.bookings.On("GetFacilityAllocations", mock.Anything, bookingID).Return([]domain.FacilityAllocation{}, nil)
	f.metrics.On("RecordTransition", "pending", "approved", "owner").Once()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientID == customerID && n.Topic == domain.TopicBookingApproved
	})).Return(nil).Once()

	resp, err := f.service(now).SetStatus(context.Background(), bookingID, &models.SetStatusRequest{
		UserID: ownerID, Role: domain.RoleOwner, Status: "approved",
	})

	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)
	assert.Equal(t, now, resp.UpdatedAt)
	f.bookings.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.metrics.AssertExpectations(t)
}

func TestSetStatusIllegalTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   domain.BookingStatus
		to     string
		userID int64
		role   domain.Role
	}{
		{"customer cannot approve", domain.StatusPending, "approved", customerID, domain.RoleCustomer},
		{"complete requires approval", domain.StatusPending, "complete", ownerID, domain.RoleOwner},
		{"rejected is terminal", domain.StatusRejected, "approved", ownerID, domain.RoleOwner},
		{"owner cannot reject complete", domain.StatusComplete, "rejected", ownerID, domain.RoleOwner},
		{"back to pending", domain.StatusApproved, "pending", 1, domain.RoleAdmin},
		{"customer cannot reject pending", domain.StatusPending, "rejected", customerID, domain.RoleCustomer},
		{"customer cannot reject after cancel deadline", domain.StatusApproved, "rejected", customerID, domain.RoleCustomer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.booking(tt.from)

			// cancel_hours=2: thirty minutes before start the free cancellation window is closed
			_, err := f.service(f.start.Add(-30*time.Minute)).SetStatus(context.Background(), bookingID, &models.SetStatusRequest{
				UserID: tt.userID, Role: tt.role, Status: tt.to,
			})

			var transition *domain.TransitionError
			require.ErrorAs(t, err, &transition)
			assert.ErrorIs(t, err, domain.ErrIllegalTransition)
			assert.Equal(t, tt.from, transition.From)
			f.bookings.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.bookings.AssertNotCalled(t, "MarkApproved", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.bookings.AssertNotCalled(t, "DeleteFacilityAllocations", mock.Anything, mock.Anything)
			f.payments.AssertNotCalled(t, "DeleteByBookingID", mock.Anything, mock.Anything)
		})
	}
}

func TestSetStatusRejectCleansUp(t *testing.T) {
	f := newFixture()
	f.booking(domain.StatusApproved)

	f.bookings.On("UpdateStatus", mock.Anything, bookingID, domain.StatusApproved, domain.StatusRejected).Return(nil).Once()
	f.expectCleanup(&domain.Payment{
		BookingID:      bookingID,
		DepositSlipURL: ptr.Ptr("https://files/dep.png"),
		TotalSlipURL:   ptr.Ptr("https://files/total.png"),
	})
	f.files.On("Delete", mock.Anything, "https://files/dep.png").Return(errors.New("storage down")).Once()
	f.files.On("Delete", mock.Anything, "https://files/total.png").Return(nil).Once()
	f.metrics.On("RecordTransition", "approved", "rejected", "owner").Once()
	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientID == customerID && n.Topic == domain.TopicBookingRejected &&
			n.Message == "Your booking #10 at Pitch A on 2025-06-01 18:00-19:00 was rejected: pitch flooded"
	})).Return(nil).Once()
	f.notifier.On("Broadcast", mock.Anything, domain.EventSlotFreed, mock.Anything).Return(nil).Once()

	resp, err := f.service(f.start.Add(-time.Hour)).SetStatus(context.Background(), bookingID, &models.SetStatusRequest{
		UserID: ownerID, Role: domain.RoleOwner, Status: "rejected", Reason: " pitch flooded ",
	})

	require.NoError(t, err)
	assert.Equal(t, "rejected", resp.Status)
	assert.Empty(t, resp.Facilities)
	f.files.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.payments.AssertExpectations(t)
}

func TestSetStatusAccessDenied(t *testing.T) {
	f := newFixture()
	f.booking(domain.StatusPending)

	_, err := f.service(f.start.Add(-time.Hour)).SetStatus(context.Background(), bookingID, &models.SetStatusRequest{
		UserID: strangerID, Role: domain.RoleOwner, Status: "approved",
	})

	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSetStatusConcurrentUpdate(t *testing.T) {
	f := newFixture()
	f.booking(domain.StatusApproved)

	f.bookings.On("UpdateStatus", mock.Anything, bookingID, domain.StatusApproved, domain.StatusComplete).
		Return(bookingRepo.ErrStatusChanged).Once()

	_, err := f.service(f.start.Add(-time.Hour)).SetStatus(context.Background(), bookingID, &models.SetStatusRequest{
		UserID: ownerID, Status: "complete",
	})

	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestSetStatusInvalidInput(t *testing.T) {
	f := newFixture()
	svc := f.service(f.start)

	_, err := svc.SetStatus(context.Background(), bookingID, &models.SetStatusRequest{UserID: ownerID, Status: "confirmed"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	long := make([]byte, domain.MaxReasonLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.SetStatus(context.Background(), bookingID, &models.SetStatusRequest{UserID: ownerID, Status: "rejected", Reason: string(long)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetStatusNotFound(t *testing.T) {
	f := newFixture()
	f.bookings.On("GetByID", mock.Anything, bookingID).Return(nil, bookingRepo.ErrBookingNotFound)

	_, err := f.service(f.start).SetStatus(context.Background(), bookingID, &models.SetStatusRequest{UserID: ownerID, Status: "approved"})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelDeadline(t *testing.T) {
	const epsilon = time.Minute

	t.Run("before deadline deletes booking", func(t *testing.T) {
		f := newFixture()
		f.booking(domain.StatusApproved)
		now := f.start.Add(-2*time.Hour - epsilon)

		f.expectCleanup(nil)
		f.bookings.On("Delete", mock.Anything, bookingID).Return(nil).Once()
		f.metrics.On("RecordTransition", "approved", "rejected", "customer").Once()
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.RecipientID == ownerID && n.Topic == domain.TopicBookingCancelled
		})).Return(nil).Once()
		f.notifier.On("Broadcast", mock.Anything, domain.EventSlotFreed, mock.Anything).Return(nil).Once()

		resp, err := f.service(now).Cancel(context.Background(), bookingID, &models.CancelBookingRequest{UserID: customerID})

		require.NoError(t, err)
		assert.Equal(t, models.CancelOutcomeDeleted, resp.Outcome)
		require.NotNil(t, resp.Deadline)
		assert.True(t, resp.Deadline.Equal(f.start.Add(-2*time.Hour)))
		assert.Contains(t, resp.Message, "2025-06-01 16:00")
		f.bookings.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("after deadline is rejected without changes", func(t *testing.T) {
		f := newFixture()
		f.booking(domain.StatusApproved)
		now := f.start.Add(-2*time.Hour + epsilon)

		_, err := f.service(now).Cancel(context.Background(), bookingID, &models.CancelBookingRequest{UserID: customerID})

		var expired *CancellationWindowExpiredError
		require.ErrorAs(t, err, &expired)
		assert.ErrorIs(t, err, ErrCancellationWindowExpired)
		assert.True(t, expired.Deadline.Equal(f.start.Add(-2*time.Hour)))
		assert.True(t, expired.BookingStart.Equal(f.start))
		f.bookings.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		f.bookings.AssertNotCalled(t, "DeleteFacilityAllocations", mock.Anything, mock.Anything)
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}

func TestCancelSoftPaths(t *testing.T) {
	tests := []struct {
		name      string
		policy    *int
		userID    int64
		role      domain.Role
		actor     string
		recipient int64
	}{
		{"no cancellation policy", nil, customerID, domain.RoleCustomer, "customer", ownerID},
		{"owner cancels past deadline", ptr.Ptr(2), ownerID, domain.RoleOwner, "owner", customerID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.field.CancelHours = tt.policy
			f.booking(domain.StatusPending)

			f.bookings.On("UpdateStatus", mock.Anything, bookingID, domain.StatusPending, domain.StatusRejected).Return(nil).Once()
			f.expectCleanup(&domain.Payment{BookingID: bookingID, DepositSlipURL: ptr.Ptr("https://files/dep.png")})
			f.files.On("Delete", mock.Anything, "https://files/dep.png").Return(nil).Once()
			f.metrics.On("RecordTransition", "pending", "rejected", tt.actor).Once()
			f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
				return n.RecipientID == tt.recipient
			})).Return(nil).Once()
			f.notifier.On("Broadcast", mock.Anything, domain.EventSlotFreed, mock.Anything).Return(nil).Once()

			resp, err := f.service(f.start.Add(-30*time.Minute)).Cancel(context.Background(), bookingID,
				&models.CancelBookingRequest{UserID: tt.userID, Role: tt.role})

			require.NoError(t, err)
			assert.Equal(t, models.CancelOutcomeRejected, resp.Outcome)
			assert.Nil(t, resp.Deadline)
			f.bookings.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
			f.files.AssertExpectations(t)
			f.metrics.AssertExpectations(t)
		})
	}
}

func TestCancelTerminalBooking(t *testing.T) {
	f := newFixture()
	f.booking(domain.StatusComplete)

	_, err := f.service(f.start.Add(-5*time.Hour)).Cancel(context.Background(), bookingID, &models.CancelBookingRequest{UserID: customerID})

	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestCancelByStranger(t *testing.T) {
	f := newFixture()
	f.booking(domain.StatusPending)

	_, err := f.service(f.start.Add(-5*time.Hour)).Cancel(context.Background(), bookingID, &models.CancelBookingRequest{UserID: strangerID})

	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestAdminDelete(t *testing.T) {
	t.Run("non admin", func(t *testing.T) {
		f := newFixture()
		err := f.service(f.start).AdminDelete(context.Background(), bookingID, &models.AdminDeleteRequest{UserID: ownerID, Role: domain.RoleOwner})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("admin removes any booking", func(t *testing.T) {
		f := newFixture()
		f.booking(domain.StatusComplete)

		f.expectCleanup(nil)
		f.bookings.On("Delete", mock.Anything, bookingID).Return(nil).Once()
		f.notifier.On("Broadcast", mock.Anything, domain.EventSlotFreed, mock.Anything).Return(nil).Once()

		err := f.service(f.start).AdminDelete(context.Background(), bookingID, &models.AdminDeleteRequest{UserID: 1, Role: domain.RoleAdmin})

		require.NoError(t, err)
		f.bookings.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("infrastructure failure", func(t *testing.T) {
		f := newFixture()
		f.booking(domain.StatusPending)
		f.bookings.On("DeleteFacilityAllocations", mock.Anything, []int64{bookingID}).Return(int64(0), errors.New("conn reset"))

		err := f.service(f.start).AdminDelete(context.Background(), bookingID, &models.AdminDeleteRequest{UserID: 1, Role: domain.RoleAdmin})
		assert.ErrorIs(t, err, ErrInternal)
	})
}

func TestGetUserBookingsAccess(t *testing.T) {
	f := newFixture()
	svc := f.service(f.start)

	_, err := svc.GetUserBookings(context.Background(), &models.GetUserBookingsRequest{RequesterID: strangerID, UserID: customerID})
	assert.ErrorIs(t, err, ErrAccessDenied)

	status := domain.StatusApproved
	f.bookings.On("GetByUserID", mock.Anything, customerID, &status).Return([]*domain.Booking{{ID: 1, Status: status}}, nil)

	resp, err := svc.GetUserBookings(context.Background(), &models.GetUserBookingsRequest{
		RequesterID: customerID, UserID: customerID, Status: ptr.Ptr("approved"),
	})
	require.NoError(t, err)
	assert.Len(t, resp.Bookings, 1)
}

func TestGetResourceBookingsOwnerOnly(t *testing.T) {
	f := newFixture()
	f.resources.On("GetResource", mock.Anything, int64(3)).Return(f.resource, nil)
	svc := f.service(f.start)

	_, err := svc.GetResourceBookings(context.Background(), &models.GetResourceBookingsRequest{UserID: customerID, ResourceID: 3})
	assert.ErrorIs(t, err, ErrAccessDenied)

	f.bookings.On("GetByResourceWithFilter", mock.Anything, domain.ResourceBookingsFilter{ResourceID: 3}).
		Return([]*domain.Booking{}, nil)

	resp, err := svc.GetResourceBookings(context.Background(), &models.GetResourceBookingsRequest{UserID: ownerID, ResourceID: 3})
	require.NoError(t, err)
	assert.Empty(t, resp.Bookings)
}

func TestGetByIDVisibleToParticipants(t *testing.T) {
	f := newFixture()
	f.booking(domain.StatusPending)
	f.bookings.On("GetFacilityAllocations", mock.Anything, bookingID).
		Return([]domain.FacilityAllocation{{FacilityID: 5, FacilityName: "ball", Quantity: 2}}, nil)
	svc := f.service(f.start)

	resp, err := svc.GetByID(context.Background(), bookingID, &models.GetBookingRequest{UserID: customerID})
	require.NoError(t, err)
	assert.Equal(t, "18:00", resp.StartTime)
	assert.Equal(t, "19:00", resp.EndTime)
	require.Len(t, resp.Facilities, 1)

	_, err = svc.GetByID(context.Background(), bookingID, &models.GetBookingRequest{UserID: strangerID})
	assert.ErrorIs(t, err, ErrAccessDenied)
}
