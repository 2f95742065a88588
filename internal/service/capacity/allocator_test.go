package capacity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-FieldBookingService/internal/domain"
	fieldRepo "github.com/m04kA/SMC-FieldBookingService/internal/infra/storage/field"
	"github.com/m04kA/SMC-FieldBookingService/pkg/timewindow"
)

type mockFacilityRepo struct {
	mock.Mock
}

func (m *mockFacilityRepo) GetFacility(ctx context.Context, fieldID, facilityID int64) (*domain.Facility, error) {
	args := m.Called(ctx, fieldID, facilityID)
	if f := args.Get(0); f != nil {
		return f.(*domain.Facility), args.Error(1)
	}
	return nil, args.Error(1)
}

// allocationStore считает занятость по сохранённым окнам, как это делает SQL запрос
type allocationStore struct {
	rows []storedAllocation
}

type storedAllocation struct {
	facilityID int64
	window     timewindow.Window
	quantity   int
}

func (s *allocationStore) SumFacilityAllocated(_ context.Context, _ int64, facilityID int64, window timewindow.Window) (int, error) {
	total := 0
	for _, r := range s.rows {
		if r.facilityID == facilityID && r.window.Overlaps(window) {
			total += r.quantity
		}
	}
	return total, nil
}

func at(hh, mm int) time.Time {
	return time.Date(2025, 6, 1, hh, mm, 0, 0, time.UTC)
}

func win(sh, sm, eh, em int) timewindow.Window {
	return timewindow.Window{Start: at(sh, sm), End: at(eh, em)}
}

func TestAllocateBallScenario(t *testing.T) {
	ball := &domain.Facility{ID: 5, FieldID: 1, Name: "ball", QuantityTotal: 2, Price: 40}
	facilities := new(mockFacilityRepo)
	facilities.On("GetFacility", mock.Anything, int64(1), int64(5)).Return(ball, nil)

	store := &allocationStore{}
	allocator := NewAllocator(store, facilities)
	ctx := context.Background()

	// X берёт оба мяча на 09:00-10:00
	x, err := allocator.Allocate(ctx, 1, win(9, 0, 10, 0), []Line{{FacilityID: 5, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, x.Allocations, 1)
	assert.Equal(t, "ball", x.Allocations[0].FacilityName)
	assert.Equal(t, 80.0, x.Cost)
	store.rows = append(store.rows, storedAllocation{facilityID: 5, window: win(9, 0, 10, 0), quantity: 2})

	// Y пересекается с X
	_, err = allocator.Allocate(ctx, 1, win(9, 30, 9, 45), []Line{{FacilityID: 5, Quantity: 1}})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, exhausted.Decision.AlreadyBooked)
	assert.Equal(t, 2, exhausted.Decision.Capacity)
	assert.Equal(t, "ball", exhausted.Decision.Facility.Name)

	// Z начинается ровно в конце X
	z, err := allocator.Allocate(ctx, 1, win(10, 0, 10, 30), []Line{{FacilityID: 5, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, z.Allocations[0].Quantity)
}

func TestAllocateMergesDuplicateLines(t *testing.T) {
	locker := &domain.Facility{ID: 2, FieldID: 1, Name: "locker", QuantityTotal: 1}
	facilities := new(mockFacilityRepo)
	facilities.On("GetFacility", mock.Anything, int64(1), int64(2)).Return(locker, nil).Once()

	allocator := NewAllocator(&allocationStore{}, facilities)

	_, err := allocator.Allocate(context.Background(), 1, win(9, 0, 10, 0), []Line{
		{FacilityID: 2, Quantity: 1},
		{FacilityID: 2, Quantity: 1},
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Decision.Requested)
	facilities.AssertExpectations(t)
}

func TestAllocateLocksInFacilityOrder(t *testing.T) {
	facilities := new(mockFacilityRepo)
	var order []int64
	for _, id := range []int64{3, 7, 9} {
		id := id
		facilities.On("GetFacility", mock.Anything, int64(1), id).
			Run(func(mock.Arguments) { order = append(order, id) }).
			Return(&domain.Facility{ID: id, FieldID: 1, QuantityTotal: 10}, nil)
	}

	allocator := NewAllocator(&allocationStore{}, facilities)
	plan, err := allocator.Allocate(context.Background(), 1, win(9, 0, 10, 0), []Line{
		{FacilityID: 9, Quantity: 1},
		{FacilityID: 3, Quantity: 1},
		{FacilityID: 7, Quantity: 1},
	})

	require.NoError(t, err)
	assert.Len(t, plan.Allocations, 3)
	assert.Equal(t, []int64{3, 7, 9}, order)
}

func TestCheckFacilityNotFound(t *testing.T) {
	facilities := new(mockFacilityRepo)
	facilities.On("GetFacility", mock.Anything, int64(1), int64(4)).Return(nil, fieldRepo.ErrFacilityNotFound)

	allocator := NewAllocator(&allocationStore{}, facilities)
	_, err := allocator.Check(context.Background(), 1, 4, win(9, 0, 10, 0), 1)

	assert.ErrorIs(t, err, ErrFacilityNotFound)
}

func TestCheckRepositoryFailure(t *testing.T) {
	facilities := new(mockFacilityRepo)
	facilities.On("GetFacility", mock.Anything, int64(1), int64(4)).Return(nil, errors.New("conn reset"))

	allocator := NewAllocator(&allocationStore{}, facilities)
	_, err := allocator.Check(context.Background(), 1, 4, win(9, 0, 10, 0), 1)

	assert.ErrorIs(t, err, ErrInternal)
}

func TestCheckRejectsNonPositiveQuantity(t *testing.T) {
	allocator := NewAllocator(&allocationStore{}, new(mockFacilityRepo))
	_, err := allocator.Check(context.Background(), 1, 4, win(9, 0, 10, 0), 0)

	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
